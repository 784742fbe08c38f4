package evaluation_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qacenter/qacenter/assets"
	"github.com/qacenter/qacenter/core"
	"github.com/qacenter/qacenter/core/evaluation"
	"github.com/qacenter/qacenter/core/rubric"
	"github.com/qacenter/qacenter/core/user"
	emailsvc "github.com/qacenter/qacenter/services/email"
	sqlxrepos "github.com/qacenter/qacenter/storage/database/sqlx"
	"github.com/qacenter/qacenter/tests"
)

type logEntry struct {
	level string
	msg   string
}

type spyLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *spyLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level, msg})
}

func (l *spyLogger) Debug(msg string, _ ...interface{}) { l.add("debug", msg) }
func (l *spyLogger) Info(msg string, _ ...interface{})  { l.add("info", msg) }
func (l *spyLogger) Warn(msg string, _ ...interface{})  { l.add("warn", msg) }
func (l *spyLogger) Error(msg string, _ ...interface{}) { l.add("error", msg) }
func (l *spyLogger) Fatal(msg string, _ ...interface{}) { l.add("fatal", msg) }

func (l *spyLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

type spyRecorder struct {
	channels []rubric.Channel
	scores   []float64
}

func (r *spyRecorder) EvaluationCreated(ch rubric.Channel, score float64) {
	r.channels = append(r.channels, ch)
	r.scores = append(r.scores, score)
}

type failingMailer struct{ calls int }

func (m *failingMailer) SendMessages(...*core.EmailMessage) error {
	m.calls++
	return errors.New("smtp is down")
}

type fixture struct {
	db       *sql.DB
	svc      *evaluation.Service
	logger   *spyLogger
	recorder *spyRecorder

	agent, mgr user.User
}

func newFixture(t *testing.T, conf *core.Config, mailSvc core.EmailService) *fixture {
	t.Helper()
	core.ParseEmailTemplates(assets.FS, conf, &spyLogger{})

	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db, testutil.Engine)
	validate, _ := testutil.NewValidator()

	f := &fixture{db: db, logger: &spyLogger{}, recorder: &spyRecorder{}}
	f.svc = evaluation.NewService(evaluation.ServiceDeps{
		DB:       db,
		Repo:     sqlxrepos.NewEvaluationRepository(db, testutil.Engine),
		UserSvc:  user.NewService(usrRepo),
		Validate: validate,
		MailSvc:  mailSvc,
		Recorder: f.recorder,
		Logger:   f.logger,
		Conf:     conf,
	})
	f.agent = testutil.CreateUser(t, usrRepo, "Ana Lopez", "ana", "ana@qa.local", "", user.RoleUser)
	f.mgr = testutil.CreateUser(t, usrRepo, "Mia Torres", "mia", "mia@qa.local", "", user.RoleManager)
	return f
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestService_Create(t *testing.T) {
	f := newFixture(t, testutil.Config(), emailsvc.NewConsoleServiceMock(testutil.Config()))
	ctx := context.Background()

	ne := testutil.NewEvaluation(t, rubric.ChannelCall, f.agent.ID, map[string]rubric.Grade{
		"solution": rubric.GradePartial,
		"recap":    rubric.GradeNo,
	})
	ne.Items[6].Notes = "no recap at all"
	clientScore := 80.0
	ne.Score = &clientScore

	ev, err := f.svc.Create(ctx, f.mgr.ID, ne)
	require.NoError(t, err)
	assert.Equal(t, 77.5, ev.Score)
	assert.Equal(t, rubric.BandWarn, ev.Band())
	assert.True(t, f.logger.has("warn", "client score differs from computed score"))
	assert.Equal(t, []rubric.Channel{rubric.ChannelCall}, f.recorder.channels)
	assert.Equal(t, []float64{77.5}, f.recorder.scores)

	items, err := f.svc.ListItems(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, items, len(ne.Items))
	for i, it := range items {
		e := ne.Items[i]
		assert.Equal(t, i, it.Position)
		assert.Equal(t, ev.ID, it.EvaluationID)
		assert.Equal(t, e.ItemID, it.ItemKey)
		assert.Equal(t, e.Label, it.Label)
		assert.Equal(t, e.Weight, it.Weight)
		assert.Equal(t, e.Grade, it.Grade)
		assert.Equal(t, e.Notes, it.Notes)
	}

	detail, err := f.svc.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mia Torres", detail.EvaluatorName)
	assert.Equal(t, "Ana Lopez", detail.EvaluatedName)
	assert.Equal(t, items, detail.Items)

	_, err = f.svc.GetByID(ctx, uuid.New().String())
	assert.Equal(t, evaluation.ErrNotFound, errors.Cause(err))
}

func TestService_CreateValidation(t *testing.T) {
	f := newFixture(t, testutil.Config(), nil)
	ctx := context.Background()

	t.Run("unknown agent", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.mgr.ID, testutil.NewEvaluation(t, rubric.ChannelChat, uuid.New().String(), nil))
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr), "got %v", err)
		assert.Equal(t, []core.FieldError{{Field: "agentId", Error: "unknown user"}}, vErr.Fields)
	})

	t.Run("weights out of range", func(t *testing.T) {
		ne := testutil.NewEvaluation(t, rubric.ChannelChat, f.agent.ID, nil)
		ne.Items[0].Weight = 150
		_, err := f.svc.Create(ctx, f.mgr.ID, ne)
		require.Error(t, err)
	})

	t.Run("all weights zero stores a zero score", func(t *testing.T) {
		ne := testutil.NewEvaluation(t, rubric.ChannelChat, f.agent.ID, nil)
		for i := range ne.Items {
			ne.Items[i].Weight = 0
		}
		ev, err := f.svc.Create(ctx, f.mgr.ID, ne)
		require.NoError(t, err)
		assert.Equal(t, 0.0, ev.Score)
		assert.Equal(t, rubric.BandBad, ev.Band())
	})

	t.Run("weights with three decimals", func(t *testing.T) {
		ne := testutil.NewEvaluation(t, rubric.ChannelChat, f.agent.ID, nil)
		ne.Items[0].Weight = 8.125
		_, err := f.svc.Create(ctx, f.mgr.ID, ne)
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr), "got %v", err)
		assert.Equal(t, "items", vErr.Fields[0].Field)
	})

	t.Run("agent checks run on the cleaned agent id", func(t *testing.T) {
		denied := errors.New("denied")
		var seen user.User
		check := func(agent user.User) error {
			seen = agent
			return denied
		}
		_, err := f.svc.Create(ctx, f.mgr.ID, testutil.NewEvaluation(t, rubric.ChannelChat, "  "+f.agent.ID+"\n", nil), check)
		assert.Equal(t, denied, err)
		assert.Equal(t, f.agent.ID, seen.ID)
	})

	assert.Equal(t, 1, f.count(t, "evaluations"))
}

func TestService_CreateIsAtomic(t *testing.T) {
	f := newFixture(t, testutil.Config(), nil)

	t.Run("a failing item insert leaves nothing behind", func(t *testing.T) {
		_, err := f.db.Exec(`CREATE TRIGGER fail_second_item BEFORE INSERT ON evaluation_items
			WHEN NEW.item_key = 'company_name'
			BEGIN SELECT RAISE(ABORT, 'item rejected'); END`)
		require.NoError(t, err)
		t.Cleanup(func() { _, _ = f.db.Exec(`DROP TRIGGER IF EXISTS fail_second_item`) })

		_, err = f.svc.Create(context.Background(), f.mgr.ID, testutil.NewEvaluation(t, rubric.ChannelCall, f.agent.ID, nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "company_name")
		assert.Equal(t, 0, f.count(t, "evaluations"))
		assert.Equal(t, 0, f.count(t, "evaluation_items"))
		assert.Empty(t, f.recorder.scores)
	})

	t.Run("a cancelled context stores nothing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := f.svc.Create(ctx, f.mgr.ID, testutil.NewEvaluation(t, rubric.ChannelCall, f.agent.ID, nil))
		require.Error(t, err)
		assert.Equal(t, 0, f.count(t, "evaluations"))
		assert.Equal(t, 0, f.count(t, "evaluation_items"))
	})
}

func TestService_Notify(t *testing.T) {
	t.Run("the evaluated user is mailed when enabled", func(t *testing.T) {
		conf := testutil.Config()
		conf.NotifyEvaluatedUser = true
		mailer := emailsvc.NewConsoleServiceMock(conf)
		f := newFixture(t, conf, mailer)

		ev := testutil.CreateEvaluation(t, f.svc, f.mgr.ID, testutil.NewEvaluation(t, rubric.ChannelChat, f.agent.ID, nil))
		sent := mailer.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "ana@qa.local", sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, ev.ID)
	})

	t.Run("nothing is mailed when disabled", func(t *testing.T) {
		conf := testutil.Config()
		mailer := emailsvc.NewConsoleServiceMock(conf)
		f := newFixture(t, conf, mailer)

		testutil.CreateEvaluation(t, f.svc, f.mgr.ID, testutil.NewEvaluation(t, rubric.ChannelChat, f.agent.ID, nil))
		assert.Empty(t, mailer.SentMessages())
	})

	t.Run("a mail failure keeps the evaluation", func(t *testing.T) {
		conf := testutil.Config()
		conf.NotifyEvaluatedUser = true
		mailer := &failingMailer{}
		f := newFixture(t, conf, mailer)

		ev, err := f.svc.Create(context.Background(), f.mgr.ID, testutil.NewEvaluation(t, rubric.ChannelChat, f.agent.ID, nil))
		require.NoError(t, err)
		assert.Equal(t, 1, mailer.calls)
		assert.True(t, f.logger.has("error", "sending evaluation notification"))

		_, err = f.svc.GetByID(context.Background(), ev.ID)
		assert.NoError(t, err)
	})
}
