package tests

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qacenter/qacenter/core/rubric"
	"github.com/qacenter/qacenter/core/user"
	"github.com/qacenter/qacenter/tests"
)

func TestUserAPI_Login(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{
			name:     "missing credentials",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username":"this field is required","password":"this field is required"}`),
		},
		{
			name:     "wrong password",
			body:     []byte(`{"username":"ana","password":"nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "unknown user",
			body:     []byte(`{"username":"ghost","password":"` + testPassword + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodPost, "/v1/users/login"
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	t.Run("by email sets the session cookie", func(t *testing.T) {
		rec := app.do(httpTest{
			method: http.MethodPost,
			path:   "/v1/users/login",
			body:   []byte(`{"username":" ANA@qa.local ","password":"` + testPassword + `"}`),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		res := rec.Result()
		defer func() { _ = res.Body.Close() }()
		var session *http.Cookie
		for _, c := range res.Cookies() {
			if c.Name == app.conf.Server.SessionCookieName {
				session = c
			}
		}
		require.NotNil(t, session)
		assert.True(t, session.HttpOnly)
		assert.NotEmpty(t, session.Value)
		assert.True(t, strings.Contains(rec.Body.String(), `"username":"ana"`))
		assert.False(t, strings.Contains(rec.Body.String(), "password"))

		// the cookie opens a session
		me := app.do(httpTest{method: http.MethodGet, path: "/v1/users/me", token: session.Value})
		assert.Equal(t, http.StatusOK, me.Code)

		usr, err := app.usrRepo.GetUser(context.Background(), user.GetFilter{ID: app.agent.ID})
		require.NoError(t, err)
		assert.False(t, usr.LastLogin.IsZero())
	})
}

func TestUserAPI_Session(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{
			name:     "no session",
			method:   http.MethodGet,
			path:     "/v1/users/me",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "invalid session",
			method:   http.MethodGet,
			path:     "/v1/users/me",
			token:    "not-a-jwt",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name:     "current user",
			method:   http.MethodGet,
			path:     "/v1/users/me",
			token:    app.token(t, app.mgr),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, app.mgr),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	t.Run("role changes apply to live sessions", func(t *testing.T) {
		token := app.token(t, app.mgr)
		demoted := app.mgr
		demoted.Role = user.RoleUser
		_, err := app.usrRepo.UpdateUser(context.Background(), demoted)
		require.NoError(t, err)

		tt := httpTest{method: http.MethodGet, path: "/v1/evaluations/agents", token: token, wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)}
		checkCodeAndData(t, tt, app.do(tt))
	})

	t.Run("logout clears the cookie", func(t *testing.T) {
		rec := app.do(httpTest{method: http.MethodPost, path: "/v1/users/logout", token: app.token(t, app.agent)})
		require.Equal(t, http.StatusNoContent, rec.Code)
		res := rec.Result()
		defer func() { _ = res.Body.Close() }()
		require.Len(t, res.Cookies(), 1)
		assert.Empty(t, res.Cookies()[0].Value)
		assert.True(t, res.Cookies()[0].MaxAge < 0)
	})
}

func TestUserAPI_Query(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{
			name:     "agent",
			token:    app.token(t, app.agent),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, errForbidden),
		},
		{
			name:     "manager",
			token:    app.token(t, app.mgr),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, errForbidden),
		},
		{
			name:     "manager plus, ordered by name",
			token:    app.token(t, app.boss),
			wantCode: http.StatusOK,
			wantData: marshallList(t, app.agent, app.agent2, app.mgr, app.boss),
		},
		{
			name:     "manager plus, by role, ordered by -username",
			path:     "/v1/users?role=user&ordering=-username,password_hash",
			token:    app.token(t, app.boss),
			wantCode: http.StatusOK,
			wantData: marshallList(t, app.agent2, app.agent),
		},
		{
			name:     "manager plus, search",
			path:     "/v1/users?search=TORR",
			token:    app.token(t, app.boss),
			wantCode: http.StatusOK,
			wantData: marshallList(t, app.mgr),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodGet
			if tt.path == "" {
				tt.path = "/v1/users"
			}
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func TestUserAPI_Create(t *testing.T) {
	app := setup(t)
	bossToken := app.token(t, app.boss)

	newUser := func(uname, email, role string) []byte {
		return []byte(`{"name":"New Agent","username":"` + uname + `","email":"` + email + `","role":"` + role +
			`","password":"` + testPassword + `","password_confirm":"` + testPassword + `"}`)
	}

	tests := []httpTest{
		{
			name:     "manager",
			token:    app.token(t, app.mgr),
			body:     newUser("newbie", "newbie@qa.local", "user"),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, errForbidden),
		},
		{
			name:     "taken username",
			token:    bossToken,
			body:     newUser("ANA", "other@qa.local", "user"),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username":"a user with this username already exists"}`),
		},
		{
			name:     "taken email",
			token:    bossToken,
			body:     newUser("other", "mia@qa.local", "user"),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"a user with this email already exists"}`),
		},
		{
			name:     "weak password",
			token:    bossToken,
			body:     []byte(`{"name":"Weak","username":"weak","email":"weak@qa.local","role":"user","password":"12345678","password_confirm":"12345678"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password":"password cannot be entirely numeric"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodPost, "/v1/users"
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	t.Run("unknown role", func(t *testing.T) {
		tt := httpTest{method: http.MethodPost, path: "/v1/users", token: bossToken, body: newUser("newbie", "newbie@qa.local", "admin"), wantCode: http.StatusBadRequest}
		checkCode(t, tt, app.do(tt))
	})

	t.Run("manager plus creates a manager", func(t *testing.T) {
		rec := app.do(httpTest{method: http.MethodPost, path: "/v1/users", token: bossToken, body: newUser("Newbie", "NEWBIE@qa.local", "manager")})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		usr, err := app.usrRepo.GetUser(context.Background(), user.GetFilter{UsernameOrEmail: "newbie@qa.local"})
		require.NoError(t, err)
		assert.Equal(t, "newbie", usr.Username)
		assert.Equal(t, user.RoleManager, usr.Role)
		assert.NoError(t, usr.CheckPassword(testPassword))
	})
}

func TestUserAPI_Delete(t *testing.T) {
	app := setup(t)
	bossToken := app.token(t, app.boss)
	testutil.CreateEvaluation(t, app.evalSvc, app.mgr.ID, testutil.NewEvaluation(t, rubric.ChannelChat, app.agent.ID, nil))

	tests := []httpTest{
		{
			name:     "manager",
			path:     "/v1/users/" + app.agent2.ID,
			token:    app.token(t, app.mgr),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, errForbidden),
		},
		{
			name:     "self",
			path:     "/v1/users/" + app.boss.ID,
			token:    bossToken,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, errForbidden),
		},
		{
			name:     "unknown user",
			path:     "/v1/users/" + uuid.New().String(),
			token:    bossToken,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "user not found"}),
		},
		{
			name:     "user with evaluations",
			path:     "/v1/users/" + app.agent.ID,
			token:    bossToken,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "user has evaluations and cannot be deleted"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodDelete
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	t.Run("deletes", func(t *testing.T) {
		rec := app.do(httpTest{method: http.MethodDelete, path: "/v1/users/" + app.agent2.ID, token: bossToken})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		_, err := app.usrRepo.GetUser(context.Background(), user.GetFilter{ID: app.agent2.ID})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("sessions of deleted users are rejected", func(t *testing.T) {
		for _, path := range []string{"/v1/users/me", "/v1/evaluations/me"} {
			tt := httpTest{name: path, method: http.MethodGet, path: path, token: app.token(t, app.agent2), wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errNoUser)}
			checkCodeAndData(t, tt, app.do(tt))
		}
	})
}
