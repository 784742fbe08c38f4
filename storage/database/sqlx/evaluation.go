package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/qacenter/qacenter/core"
	"github.com/qacenter/qacenter/core/evaluation"
	"github.com/qacenter/qacenter/core/rubric"
)

const (
	evaluationsTable     = "evaluations"
	evaluationItemsTable = "evaluation_items"
)

var itemColumns = []string{"id", "evaluation_id", "position", "item_key", "label", "weight", "grade", "notes"}

type evaluationRow struct {
	ID              string      `db:"id"`
	Channel         string      `db:"channel"`
	EvaluatorID     string      `db:"evaluator_id"`
	EvaluatedUserID string      `db:"evaluated_user_id"`
	Score           float64     `db:"score"`
	GeneralNotes    null.String `db:"general_notes"`
	CreatedAt       time.Time   `db:"created_at"`
	EvaluatorName   string      `db:"evaluator_name"`
	EvaluatedName   string      `db:"evaluated_name"`
}

func (row evaluationRow) evaluation() evaluation.Evaluation {
	return evaluation.Evaluation{
		ID:              row.ID,
		Channel:         rubric.Channel(row.Channel),
		EvaluatorID:     row.EvaluatorID,
		EvaluatedUserID: row.EvaluatedUserID,
		Score:           row.Score,
		GeneralNotes:    row.GeneralNotes.String,
		CreatedAt:       row.CreatedAt.UTC(),
	}
}

type itemRow struct {
	ID           string      `db:"id"`
	EvaluationID string      `db:"evaluation_id"`
	Position     int         `db:"position"`
	ItemKey      string      `db:"item_key"`
	Label        string      `db:"label"`
	Weight       float64     `db:"weight"`
	Grade        string      `db:"grade"`
	Notes        null.String `db:"notes"`
}

type evaluationRepository struct {
	repository
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(exec core.DBExecutor, engine string) *evaluationRepository {
	return &evaluationRepository{repository: newRepository(exec, engine)}
}

func (repo evaluationRepository) CreateEvaluation(ctx context.Context, ev evaluation.Evaluation, exec ...core.DBExecutor) error {
	b := repo.sb.Insert(evaluationsTable).
		Columns("id", "channel", "evaluator_id", "evaluated_user_id", "score", "general_notes", "created_at").
		Values(
			ev.ID, string(ev.Channel), ev.EvaluatorID, ev.EvaluatedUserID, ev.Score,
			null.NewString(ev.GeneralNotes, ev.GeneralNotes != ""), ev.CreatedAt.UTC(),
		)
	_, err := repo.execSql(ctx, b, exec)
	return errors.Wrap(err, "inserting evaluation")
}

func (repo evaluationRepository) CreateItem(ctx context.Context, it evaluation.Item, exec ...core.DBExecutor) error {
	b := repo.sb.Insert(evaluationItemsTable).
		Columns(itemColumns...).
		Values(
			it.ID, it.EvaluationID, it.Position, it.ItemKey, it.Label, it.Weight, string(it.Grade),
			null.NewString(it.Notes, it.Notes != ""),
		)
	_, err := repo.execSql(ctx, b, exec)
	return errors.Wrap(err, "inserting evaluation item")
}

func (repo evaluationRepository) selectEvaluations() sq.SelectBuilder {
	return repo.sb.Select(
		"e.id", "e.channel", "e.evaluator_id", "e.evaluated_user_id", "e.score", "e.general_notes", "e.created_at",
		"evaluator.name AS evaluator_name", "evaluated.name AS evaluated_name",
	).
		From(evaluationsTable + " e").
		Join(usersTable + " evaluator ON evaluator.id = e.evaluator_id").
		Join(usersTable + " evaluated ON evaluated.id = e.evaluated_user_id")
}

func (repo evaluationRepository) QueryForEvaluatedUser(ctx context.Context, userID string, exec ...core.DBExecutor) ([]evaluation.Summary, error) {
	b := repo.selectEvaluations().
		Where(sq.Eq{"e.evaluated_user_id": userID}).
		OrderBy("e.created_at DESC", "e.id DESC")

	var rows []evaluationRow
	if err := repo.selectInto(ctx, &rows, b, exec); err != nil {
		return nil, errors.Wrap(err, "querying evaluations")
	}
	summaries := make([]evaluation.Summary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, evaluation.Summary{
			Evaluation:    row.evaluation(),
			EvaluatorName: row.EvaluatorName,
		})
	}
	return summaries, nil
}

func (repo evaluationRepository) GetEvaluation(ctx context.Context, id string, exec ...core.DBExecutor) (evaluation.Detail, error) {
	var rows []evaluationRow
	if err := repo.selectInto(ctx, &rows, repo.selectEvaluations().Where(sq.Eq{"e.id": id}).Limit(1), exec); err != nil {
		return evaluation.Detail{}, errors.Wrap(err, "finding evaluation")
	}
	if len(rows) == 0 {
		return evaluation.Detail{}, evaluation.ErrNotFound
	}
	return evaluation.Detail{
		Evaluation:    rows[0].evaluation(),
		EvaluatorName: rows[0].EvaluatorName,
		EvaluatedName: rows[0].EvaluatedName,
	}, nil
}

func (repo evaluationRepository) QueryItems(ctx context.Context, evaluationID string, exec ...core.DBExecutor) ([]evaluation.Item, error) {
	b := repo.sb.Select(itemColumns...).
		From(evaluationItemsTable).
		Where(sq.Eq{"evaluation_id": evaluationID}).
		OrderBy("position ASC")

	var rows []itemRow
	if err := repo.selectInto(ctx, &rows, b, exec); err != nil {
		return nil, errors.Wrap(err, "querying evaluation items")
	}
	items := make([]evaluation.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, evaluation.Item{
			ID:           row.ID,
			EvaluationID: row.EvaluationID,
			Position:     row.Position,
			ItemKey:      row.ItemKey,
			Label:        row.Label,
			Weight:       row.Weight,
			Grade:        rubric.Grade(row.Grade),
			Notes:        row.Notes.String,
		})
	}
	return items, nil
}
