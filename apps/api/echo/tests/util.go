package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	. "github.com/qacenter/qacenter/apps/api/echo"
	"github.com/qacenter/qacenter/assets"
	"github.com/qacenter/qacenter/core"
	"github.com/qacenter/qacenter/core/evaluation"
	"github.com/qacenter/qacenter/core/user"
	emailsvc "github.com/qacenter/qacenter/services/email"
	exportsvc "github.com/qacenter/qacenter/services/export"
	metricsvc "github.com/qacenter/qacenter/services/metrics"
	sqlxrepos "github.com/qacenter/qacenter/storage/database/sqlx"
	"github.com/qacenter/qacenter/tests"
)

const testPassword = "Qu!ckBr0wnF0x"

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNoUser       = httpErr{Error: "user not authenticated"}

	// fixed timestamps keep the JSON of stored users stable
	tstamp = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
)

type testApp struct {
	*Server
	conf    *core.Config
	usrRepo user.Repository
	evalSvc *evaluation.Service

	agent, agent2, mgr, boss user.User
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func setup(t *testing.T) *testApp {
	conf := testutil.Config()
	logger := nopLogger{}
	core.ParseEmailTemplates(assets.FS, conf, logger)

	// set up DB & repos
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db, testutil.Engine)
	evalRepo := sqlxrepos.NewEvaluationRepository(db, testutil.Engine)

	// set up services
	validate, translator := testutil.NewValidator()
	usrSvc := user.NewService(usrRepo)
	metrics := metricsvc.NewManager()
	evalSvc := evaluation.NewService(evaluation.ServiceDeps{
		DB:       db,
		Repo:     evalRepo,
		UserSvc:  usrSvc,
		Validate: validate,
		MailSvc:  emailsvc.NewConsoleServiceMock(conf),
		Exporter: exportsvc.NewXLSXExporter(),
		Recorder: metrics,
		Logger:   logger,
		Conf:     conf,
	})

	app := &testApp{
		Server: NewServer(ServerDeps{
			Conf:          conf,
			Logger:        logger,
			UserSvc:       usrSvc,
			EvaluationSvc: evalSvc,
			Metrics:       metrics,
			Validate:      validate,
			Translator:    translator,
		}),
		conf:    conf,
		usrRepo: usrRepo,
		evalSvc: evalSvc,
	}

	app.agent = testutil.CreateUser(t, usrRepo, "Ana Lopez", "ana", "ana@qa.local", testPassword, user.RoleUser, tstamp)
	app.agent2 = testutil.CreateUser(t, usrRepo, "Bruno Diaz", "bruno", "bruno@qa.local", testPassword, user.RoleUser, tstamp)
	app.mgr = testutil.CreateUser(t, usrRepo, "Mia Torres", "mia", "mia@qa.local", testPassword, user.RoleManager, tstamp)
	app.boss = testutil.CreateUser(t, usrRepo, "Zoe Ortiz", "zoe", "zoe@qa.local", testPassword, user.RoleManagerPlus, tstamp)
	return app
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	token, err := app.GenerateToken(app.GetUserClaims(usr))
	if err != nil {
		t.Fatalf("token(): %v", err)
	}
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func (app *testApp) newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(app.SessionCookie(token, time.Now().Add(time.Hour)))
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func (app *testApp) do(tt httpTest) *httptest.ResponseRecorder {
	req, rec := app.newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func marshallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCode(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	checkCode(t, tt, rec)
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
