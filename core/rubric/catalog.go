// Package rubric holds the fixed rubric catalogs and the scoring engine.
//
// A catalog is immutable. An Instance is the working copy of one evaluation: it is seeded from a
// catalog, edited by its holder (weights, grades, notes) and scored on demand.
package rubric

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

type Channel string

const (
	ChannelCall Channel = "call"
	ChannelChat Channel = "chat"
)

var (
	Channels = []Channel{ChannelCall, ChannelChat}

	ErrInvalidChannel = errors.New("invalid channel")
)

// Item is one criterion of a catalog.
type Item struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

var (
	callCatalog = []Item{
		{ID: "caller_name", Label: "The caller's name is mentioned", Weight: 5},
		{ID: "company_name", Label: "The company name is mentioned", Weight: 5},
		{ID: "acknowledge", Label: "The problem is acknowledged and validated", Weight: 15},
		{ID: "solution", Label: "A clear and viable solution is offered", Weight: 25},
		{ID: "next_steps", Label: "The next steps are explained", Weight: 10},
		{ID: "feedback_request", Label: "Feedback is invited (without bias)", Weight: 10},
		{ID: "recap", Label: "Closing recap of what was done", Weight: 10},
		{ID: "professional_tone", Label: "Professional language and appropriate tone", Weight: 10},
		{ID: "spelling_grammar", Label: "Correct spelling/grammar", Weight: 10},
	}

	chatCatalog = []Item{
		{ID: "greeting_brand", Label: "Greeting and company identification", Weight: 8},
		{ID: "acknowledge", Label: "Written acknowledgement of the problem", Weight: 15},
		{ID: "solution", Label: "Clear solution with actionable steps", Weight: 25},
		{ID: "next_steps", Label: "Next steps and timelines", Weight: 12},
		{ID: "feedback_request", Label: "Feedback request (unbiased)", Weight: 10},
		{ID: "recap", Label: "Final chat recap", Weight: 10},
		{ID: "professional_tone", Label: "Professional language", Weight: 10},
		{ID: "spelling_grammar", Label: "Correct spelling/grammar", Weight: 10},
	}
)

func ParseChannel(s string) (Channel, error) {
	switch c := Channel(s); c {
	case ChannelCall, ChannelChat:
		return c, nil
	default:
		return "", errors.Wrap(ErrInvalidChannel, fmt.Sprintf("%q", s))
	}
}

func (c Channel) IsValid() bool {
	_, err := ParseChannel(string(c))
	return err == nil
}

func (c *Channel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	ch, err := ParseChannel(s)
	if err != nil {
		return err
	}
	*c = ch
	return nil
}

// Catalog returns a copy of the channel's catalog, in display order.
func Catalog(ch Channel) ([]Item, error) {
	var src []Item
	switch ch {
	case ChannelCall:
		src = callCatalog
	case ChannelChat:
		src = chatCatalog
	default:
		return nil, errors.Wrap(ErrInvalidChannel, fmt.Sprintf("%q", ch))
	}
	items := make([]Item, len(src))
	copy(items, src)
	return items, nil
}

// CatalogItem finds a catalog item by id.
func CatalogItem(ch Channel, id string) (Item, bool) {
	items, err := Catalog(ch)
	if err != nil {
		return Item{}, false
	}
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
