package evaluation

import (
	"time"

	"github.com/qacenter/qacenter/core"
	"github.com/qacenter/qacenter/core/rubric"
)

// Evaluation is the immutable header of a scored interaction.
type Evaluation struct {
	ID              string         `json:"id"`
	Channel         rubric.Channel `json:"channel"`
	EvaluatorID     string         `json:"evaluatorId"`
	EvaluatedUserID string         `json:"evaluatedUserId"`
	Score           float64        `json:"score"`
	GeneralNotes    string         `json:"generalNotes,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"` // UTC
}

func (ev Evaluation) Band() rubric.Band { return rubric.BandFor(ev.Score) }

// Item is a rubric entry as it was graded, stored with its evaluation.
type Item struct {
	ID           string       `json:"id"`
	EvaluationID string       `json:"evaluationId"`
	Position     int          `json:"position"`
	ItemKey      string       `json:"itemKey"`
	Label        string       `json:"label"`
	Weight       float64      `json:"weight"`
	Grade        rubric.Grade `json:"grade"`
	Notes        string       `json:"notes,omitempty"`
}

// Summary is a list row.
type Summary struct {
	Evaluation
	EvaluatorName string      `json:"evaluatorName"`
	Band          rubric.Band `json:"band"`
}

type Detail struct {
	Evaluation
	EvaluatorName string      `json:"evaluatorName"`
	EvaluatedName string      `json:"evaluatedName"`
	Band          rubric.Band `json:"band"`
	Items         []Item      `json:"items"`
}

// NewEvaluation is a submission from the evaluation form.
// Score is what the client computed; the stored score is always recomputed.
type NewEvaluation struct {
	Channel      rubric.Channel `json:"channel" validate:"required,channel"`
	AgentID      string         `json:"agentId" validate:"required"`
	Items        []rubric.Entry `json:"items" validate:"required,min=1,dive"`
	Score        *float64       `json:"score"`
	GeneralNotes string         `json:"generalNotes"`
}

func (ne *NewEvaluation) Clean() {
	ne.AgentID = core.CleanString(ne.AgentID)
	ne.GeneralNotes = core.CleanString(ne.GeneralNotes)
	for i := range ne.Items {
		ne.Items[i].ItemID = core.CleanString(ne.Items[i].ItemID)
		ne.Items[i].Label = core.CleanString(ne.Items[i].Label)
		ne.Items[i].Notes = core.CleanString(ne.Items[i].Notes)
	}
}

func (ne NewEvaluation) Instance() rubric.Instance {
	return rubric.Instance{Channel: ne.Channel, Entries: ne.Items}
}
