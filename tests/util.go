package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/qacenter/qacenter/core"
	"github.com/qacenter/qacenter/core/evaluation"
	"github.com/qacenter/qacenter/core/rubric"
	"github.com/qacenter/qacenter/core/user"
	"github.com/qacenter/qacenter/storage/database"
)

const Engine = database.SQLite

// Config returns the configuration used by tests.
func Config() *core.Config {
	return &core.Config{
		Env:              "TEST",
		AppName:          "QA Center",
		TestMode:         true,
		SecretKey:        "test-secret-key",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: "QA Center <noreply@localhost>",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
			SessionCookieName:  "qa_session",
			ShutdownTimeout:    time.Second,
		},
		Database: core.DatabaseConfig{Engine: Engine},
	}
}

// PrepareDB opens a migrated SQLite database in a temp dir, closed when the test ends.
func PrepareDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "qa_center_test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db, Engine); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	rubric.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	evaluation.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t testing.TB,
	repo user.Repository,
	name, uname, email, pwd string,
	role user.Role,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// NewEvaluation builds a submission from the channel's seeded rubric with the given grades applied.
func NewEvaluation(t testing.TB, ch rubric.Channel, agentID string, grades map[string]rubric.Grade) evaluation.NewEvaluation {
	t.Helper()
	inst, err := rubric.Seed(ch)
	if err != nil {
		t.Fatalf("seeding rubric: %v", err)
	}
	for id, g := range grades {
		if err = inst.SetGrade(id, g); err != nil {
			t.Fatalf("grading rubric: %v", err)
		}
	}
	return evaluation.NewEvaluation{
		Channel: inst.Channel,
		AgentID: agentID,
		Items:   inst.Entries,
	}
}

func CreateEvaluation(t testing.TB, svc *evaluation.Service, evaluatorID string, ne evaluation.NewEvaluation) evaluation.Evaluation {
	t.Helper()
	ev, err := svc.Create(context.Background(), evaluatorID, ne)
	if err != nil {
		t.Fatalf("createEvaluation() failed: %v", err)
	}
	return ev
}
