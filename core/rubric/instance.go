package rubric

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/pkg/errors"
)

type Grade string

const (
	GradeYes     Grade = "yes"
	GradePartial Grade = "partial"
	GradeNo      Grade = "no"
)

const (
	MinWeight = 0
	MaxWeight = 100
)

var (
	// Grades from worst to best.
	Grades = []Grade{GradeNo, GradePartial, GradeYes}

	ErrInvalidGrade   = errors.New("invalid grade")
	ErrInvalidWeight  = errors.New("weight must be between 0 and 100")
	ErrWeightDecimals = errors.New("weight must have at most 2 decimals")
	ErrUnknownItem    = errors.New("unknown rubric item")
	ErrDuplicateItem  = errors.New("duplicate rubric item")
	ErrEmptyInstance  = errors.New("rubric has no items")
	ErrMissingItemKey = errors.New("rubric item id is required")
)

func ParseGrade(s string) (Grade, error) {
	switch g := Grade(s); g {
	case GradeYes, GradePartial, GradeNo:
		return g, nil
	default:
		return "", errors.Wrap(ErrInvalidGrade, fmt.Sprintf("%q", s))
	}
}

func (g Grade) IsValid() bool {
	_, err := ParseGrade(string(g))
	return err == nil
}

// Factor is the share of an item's weight earned with this grade.
// Grades built with ParseGrade or decoded from JSON are always valid.
func (g Grade) Factor() float64 {
	switch g {
	case GradeYes:
		return 1
	case GradePartial:
		return .5
	case GradeNo:
		return 0
	default:
		panic(fmt.Sprintf("rubric: factor of invalid grade %q", string(g)))
	}
}

func (g *Grade) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	gr, err := ParseGrade(s)
	if err != nil {
		return err
	}
	*g = gr
	return nil
}

// Entry is one graded criterion of an Instance.
type Entry struct {
	ItemID string  `json:"id" validate:"required"`
	Label  string  `json:"label"`
	Weight float64 `json:"weight" validate:"min=0,max=100"`
	Grade  Grade   `json:"grade" validate:"required,grade"`
	Notes  string  `json:"notes,omitempty"`
}

// Instance is the working copy of a rubric for one evaluation.
type Instance struct {
	Channel Channel `json:"channel"`
	Entries []Entry `json:"items"`
}

// Seed starts a new Instance from the channel's catalog, every item graded "yes".
func Seed(ch Channel) (Instance, error) {
	items, err := Catalog(ch)
	if err != nil {
		return Instance{}, err
	}
	inst := Instance{Channel: ch, Entries: make([]Entry, 0, len(items))}
	for _, it := range items {
		inst.Entries = append(inst.Entries, Entry{
			ItemID: it.ID,
			Label:  it.Label,
			Weight: it.Weight,
			Grade:  GradeYes,
		})
	}
	return inst, nil
}

func (inst *Instance) entry(itemID string) (*Entry, error) {
	for i := range inst.Entries {
		if inst.Entries[i].ItemID == itemID {
			return &inst.Entries[i], nil
		}
	}
	return nil, errors.Wrap(ErrUnknownItem, fmt.Sprintf("%q", itemID))
}

func checkWeight(w float64) error {
	if math.IsNaN(w) || w < MinWeight || w > MaxWeight {
		return errors.Wrap(ErrInvalidWeight, fmt.Sprintf("%v", w))
	}
	// weights are stored as NUMERIC(5,2)
	if cents := w * 100; math.Abs(cents-math.Round(cents)) > 1e-6 {
		return errors.Wrap(ErrWeightDecimals, fmt.Sprintf("%v", w))
	}
	return nil
}

// SetWeight overrides the catalog weight of an item.
func (inst *Instance) SetWeight(itemID string, weight float64) error {
	if err := checkWeight(weight); err != nil {
		return err
	}
	e, err := inst.entry(itemID)
	if err != nil {
		return err
	}
	e.Weight = weight
	return nil
}

func (inst *Instance) SetGrade(itemID string, grade Grade) error {
	if !grade.IsValid() {
		return errors.Wrap(ErrInvalidGrade, fmt.Sprintf("%q", string(grade)))
	}
	e, err := inst.entry(itemID)
	if err != nil {
		return err
	}
	e.Grade = grade
	return nil
}

func (inst *Instance) SetNotes(itemID, notes string) error {
	e, err := inst.entry(itemID)
	if err != nil {
		return err
	}
	e.Notes = notes
	return nil
}

// Validate checks the invariants of an Instance received from a client:
// at least one entry, non-empty unique item ids from the channel's catalog, weights within range
// (2 decimals at most) and valid grades.
func (inst Instance) Validate() error {
	if !inst.Channel.IsValid() {
		return errors.Wrap(ErrInvalidChannel, fmt.Sprintf("%q", string(inst.Channel)))
	}
	if len(inst.Entries) == 0 {
		return ErrEmptyInstance
	}
	seen := make(map[string]struct{}, len(inst.Entries))
	for _, e := range inst.Entries {
		if e.ItemID == "" {
			return ErrMissingItemKey
		}
		if _, ok := CatalogItem(inst.Channel, e.ItemID); !ok {
			return errors.Wrap(ErrUnknownItem, fmt.Sprintf("%q for channel %s", e.ItemID, inst.Channel))
		}
		if _, ok := seen[e.ItemID]; ok {
			return errors.Wrap(ErrDuplicateItem, fmt.Sprintf("%q", e.ItemID))
		}
		seen[e.ItemID] = struct{}{}
		if err := checkWeight(e.Weight); err != nil {
			return errors.Wrap(err, e.ItemID)
		}
		if !e.Grade.IsValid() {
			return errors.Wrap(ErrInvalidGrade, fmt.Sprintf("%s: %q", e.ItemID, string(e.Grade)))
		}
	}
	return nil
}

func (inst Instance) TotalWeight() float64 { return TotalWeight(inst) }
func (inst Instance) Score() float64       { return Score(inst) }
