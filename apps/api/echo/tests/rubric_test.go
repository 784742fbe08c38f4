package tests

import (
	"net/http"
	"testing"

	. "github.com/qacenter/qacenter/apps/api/echo"
	"github.com/qacenter/qacenter/core/rubric"
)

func TestRubricAPI_Seed(t *testing.T) {
	app := setup(t)
	mgrToken := app.token(t, app.mgr)

	call, _ := rubric.Seed(rubric.ChannelCall)
	chat, _ := rubric.Seed(rubric.ChannelChat)

	tests := []httpTest{
		{
			name:     "no session",
			path:     "/v1/rubrics/call",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "agent",
			path:     "/v1/rubrics/call",
			token:    app.token(t, app.agent),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, errForbidden),
		},
		{
			name:     "unknown channel",
			path:     "/v1/rubrics/fax",
			token:    mgrToken,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "call",
			path:     "/v1/rubrics/call",
			token:    mgrToken,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, call),
		},
		{
			name:     "chat",
			path:     "/v1/rubrics/chat",
			token:    app.token(t, app.boss),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, chat),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodGet
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func TestRubricAPI_Score(t *testing.T) {
	app := setup(t)
	mgrToken := app.token(t, app.mgr)

	graded, _ := rubric.Seed(rubric.ChannelCall)
	_ = graded.SetGrade("solution", rubric.GradePartial)
	_ = graded.SetGrade("recap", rubric.GradeNo)

	precise, _ := rubric.Seed(rubric.ChannelCall)
	_ = precise.SetWeight("solution", 24.75)

	zeroed, _ := rubric.Seed(rubric.ChannelChat)
	for _, e := range zeroed.Entries {
		_ = zeroed.SetWeight(e.ItemID, 0)
	}

	tests := []httpTest{
		{
			name:     "graded call rubric",
			body:     marshallObj(t, graded),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, ScoreResponse{Score: 77.5, TotalWeight: 100, Band: rubric.BandWarn}),
		},
		{
			name:     "all weights zeroed",
			body:     marshallObj(t, zeroed),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, ScoreResponse{Score: 0, TotalWeight: 0, Band: rubric.BandBad}),
		},
		{
			name:     "two decimal weight",
			body:     marshallObj(t, precise),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, ScoreResponse{Score: 100, TotalWeight: 99.75, Band: rubric.BandOK}),
		},
		{
			name:     "weight with three decimals",
			body:     []byte(`{"channel":"chat","items":[{"id":"solution","label":"S","weight":10.555,"grade":"yes"}]}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"items":"solution: 10.555: weight must have at most 2 decimals"}`),
		},
		{
			name:     "item from the other channel",
			body:     []byte(`{"channel":"chat","items":[{"id":"caller_name","label":"C","weight":5,"grade":"yes"}]}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"items":"\"caller_name\" for channel chat: unknown rubric item"}`),
		},
		{
			name:     "no items",
			body:     []byte(`{"channel":"chat","items":[]}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"items": rubric.ErrEmptyInstance.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path, tt.token = http.MethodPost, "/v1/rubrics/score", mgrToken
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	for _, body := range []string{
		`{"channel":"chat","items":[{"id":"a","label":"A","weight":10,"grade":"maybe"}]}`,
		`{"channel":"fax","items":[{"id":"a","label":"A","weight":10,"grade":"yes"}]}`,
	} {
		tt := httpTest{method: http.MethodPost, path: "/v1/rubrics/score", token: mgrToken, body: []byte(body), wantCode: http.StatusBadRequest}
		checkCode(t, tt, app.do(tt))
	}
}
