package evaluation

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/qacenter/qacenter/core"
	"github.com/qacenter/qacenter/core/rubric"
	"github.com/qacenter/qacenter/core/user"
)

var (
	NowFunc = time.Now // mockable

	ErrNotFound = errors.New("evaluation not found")

	errUnknownAgent = errors.New("unknown user")
)

type (
	Repository interface {
		CreateEvaluation(ctx context.Context, ev Evaluation, exec ...core.DBExecutor) error
		CreateItem(ctx context.Context, it Item, exec ...core.DBExecutor) error
		// QueryForEvaluatedUser returns the user's evaluations, newest first.
		QueryForEvaluatedUser(ctx context.Context, userID string, exec ...core.DBExecutor) ([]Summary, error)
		// GetEvaluation returns the Detail header; its Items are not loaded.
		GetEvaluation(ctx context.Context, id string, exec ...core.DBExecutor) (Detail, error)
		// QueryItems returns the items of an evaluation in insertion order.
		QueryItems(ctx context.Context, evaluationID string, exec ...core.DBExecutor) ([]Item, error)
	}

	// Recorder receives the evaluations committed by the Service.
	Recorder interface {
		EvaluationCreated(ch rubric.Channel, score float64)
	}

	// AgentCheck vets the resolved agent before anything is stored.
	AgentCheck func(agent user.User) error

	// Exporter renders an agent's evaluations as a spreadsheet.
	Exporter interface {
		ExportEvaluations(agent user.User, rows []Summary) ([]byte, error)
	}

	ServiceDeps struct {
		DB       core.DB
		Repo     Repository
		UserSvc  *user.Service
		Validate *validator.Validate
		MailSvc  core.EmailService
		Exporter Exporter
		Recorder Recorder
		Logger   core.Logger
		Conf     *core.Config
	}

	Service struct {
		db       core.DB
		repo     Repository
		usrSvc   *user.Service
		validate *validator.Validate
		mailSvc  core.EmailService
		exporter Exporter
		recorder Recorder
		logger   core.Logger
		conf     *core.Config
	}
)

func NewService(deps ServiceDeps) *Service {
	return &Service{
		db:       deps.DB,
		repo:     deps.Repo,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
		mailSvc:  deps.MailSvc,
		exporter: deps.Exporter,
		recorder: deps.Recorder,
		logger:   deps.Logger,
		conf:     deps.Conf,
	}
}

func (svc *Service) validateNew(ctx context.Context, ne *NewEvaluation) (user.User, error) {
	ne.Clean()
	if err := svc.validate.Struct(ne); err != nil {
		return user.User{}, err
	}
	if err := ne.Instance().Validate(); err != nil {
		return user.User{}, core.NewFieldError("items", err)
	}

	agent, err := svc.usrSvc.GetByID(ctx, ne.AgentID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, core.NewFieldError("agentId", errUnknownAgent)
		}
		return user.User{}, errors.Wrap(err, "getting agent")
	}
	return agent, nil
}

// Create validates the submission, scores it and stores the header with all its items in one transaction.
// The checks run on the agent resolved from the cleaned agent id; their errors are returned unwrapped.
func (svc *Service) Create(ctx context.Context, evaluatorID string, ne NewEvaluation, checks ...AgentCheck) (Evaluation, error) {
	agent, err := svc.validateNew(ctx, &ne)
	if err != nil {
		return Evaluation{}, err
	}
	for _, check := range checks {
		if err = check(agent); err != nil {
			return Evaluation{}, err
		}
	}
	evaluator, err := svc.usrSvc.GetByID(ctx, evaluatorID)
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "getting evaluator")
	}

	inst := ne.Instance()
	score := inst.Score()
	if ne.Score != nil && *ne.Score != score {
		svc.logger.Warn("client score differs from computed score", map[string]interface{}{
			"agent_id":     agent.ID,
			"evaluator_id": evaluator.ID,
			"client_score": *ne.Score,
			"score":        score,
		})
	}

	ev := Evaluation{
		ID:              uuid.New().String(),
		Channel:         inst.Channel,
		EvaluatorID:     evaluator.ID,
		EvaluatedUserID: agent.ID,
		Score:           score,
		GeneralNotes:    ne.GeneralNotes,
		CreatedAt:       NowFunc().UTC(),
	}
	items := make([]Item, 0, len(inst.Entries))
	for i, e := range inst.Entries {
		items = append(items, Item{
			ID:           uuid.New().String(),
			EvaluationID: ev.ID,
			Position:     i,
			ItemKey:      e.ItemID,
			Label:        e.Label,
			Weight:       e.Weight,
			Grade:        e.Grade,
			Notes:        e.Notes,
		})
	}

	if err = svc.store(ctx, ev, items); err != nil {
		return Evaluation{}, err
	}

	if svc.recorder != nil {
		svc.recorder.EvaluationCreated(ev.Channel, ev.Score)
	}
	svc.notify(ev, evaluator, agent)
	return ev, nil
}

func (svc *Service) store(ctx context.Context, ev Evaluation, items []Item) error {
	return core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.repo.CreateEvaluation(ctx, ev, tx); err != nil {
			return errors.Wrap(err, "inserting evaluation")
		}
		for _, it := range items {
			if err := svc.repo.CreateItem(ctx, it, tx); err != nil {
				return errors.Wrap(err, fmt.Sprintf("inserting item %q", it.ItemKey))
			}
		}
		return nil
	})
}

// notify mails the evaluated user. The evaluation is committed already, so failures are only logged.
func (svc *Service) notify(ev Evaluation, evaluator, agent user.User) {
	if svc.mailSvc == nil || !svc.conf.NotifyEvaluatedUser || agent.Email == "" {
		return
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: agent.Name, Address: agent.Email}},
		Subject:      fmt.Sprintf("New %s evaluation: %.1f", ev.Channel, ev.Score),
		TemplateName: "evaluation_created",
		TemplateData: map[string]interface{}{
			"ID":            ev.ID,
			"Channel":       string(ev.Channel),
			"Score":         ev.Score,
			"EvaluatedName": agent.Name,
			"EvaluatorName": evaluator.Name,
		},
	}
	if err := svc.mailSvc.SendMessages(msg); err != nil {
		svc.logger.Error("sending evaluation notification", err, map[string]interface{}{"evaluation_id": ev.ID})
	}
}

func (svc *Service) ListForEvaluatedUser(ctx context.Context, userID string) ([]Summary, error) {
	rows, err := svc.repo.QueryForEvaluatedUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Band = rows[i].Evaluation.Band()
	}
	return rows, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Detail, error) {
	det, err := svc.repo.GetEvaluation(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if det.Items, err = svc.repo.QueryItems(ctx, id); err != nil {
		return Detail{}, err
	}
	det.Band = det.Evaluation.Band()
	return det, nil
}

func (svc *Service) ListItems(ctx context.Context, evaluationID string) ([]Item, error) {
	return svc.repo.QueryItems(ctx, evaluationID)
}

// Export returns the spreadsheet of the agent's evaluations and its file name.
func (svc *Service) Export(ctx context.Context, agentID string) (string, []byte, error) {
	agent, err := svc.usrSvc.GetByID(ctx, agentID)
	if err != nil {
		return "", nil, err
	}
	rows, err := svc.ListForEvaluatedUser(ctx, agent.ID)
	if err != nil {
		return "", nil, err
	}
	content, err := svc.exporter.ExportEvaluations(agent, rows)
	if err != nil {
		return "", nil, errors.Wrap(err, "exporting evaluations")
	}
	fname := fmt.Sprintf("evaluations_%s_%s.xlsx", agent.Username, NowFunc().UTC().Format("20060102"))
	return fname, content, nil
}
