package card

import (
	"errors"
	"fmt"

	"github.com/kanjiarena/kanji-arena/internal/gamemode"
)

// Choice is one selectable answer of a card.
type Choice struct {
	Label         string   `json:"label"`
	ExtraMeanings []string `json:"extraMeanings,omitempty"`
}

// Card is the rendered question: a proposal and its ordered choices.
type Card struct {
	Proposal string   `json:"proposal"`
	Choices  []Choice `json:"choices"`
}

// Item is a vocabulary entry with its meaning already resolved for display.
type Item struct {
	Kanji         string
	Meaning       string
	ExtraMeanings []string
}

var ErrInvalidGroup = errors.New("invalid card group")

// Builder turns a group of items into a card. items[0] is the answer and is
// placed at correctIndex; the other items become the wrong choices in order.
type Builder interface {
	BuildCard(items []Item, correctIndex int) (Card, error)
}

// ClassicBuilder shows a kanji and asks for its meaning.
type ClassicBuilder struct{}

func (ClassicBuilder) BuildCard(items []Item, correctIndex int) (Card, error) {
	if err := checkGroup(items, correctIndex); err != nil {
		return Card{}, err
	}
	choices := make([]Choice, 0, len(items))
	for _, it := range items[1:] {
		choices = append(choices, Choice{Label: it.Meaning, ExtraMeanings: it.ExtraMeanings})
	}
	answer := Choice{Label: items[0].Meaning, ExtraMeanings: items[0].ExtraMeanings}
	return Card{
		Proposal: items[0].Kanji,
		Choices:  splice(choices, correctIndex, answer),
	}, nil
}

// ReverseBuilder shows a meaning and asks for its kanji.
type ReverseBuilder struct{}

func (ReverseBuilder) BuildCard(items []Item, correctIndex int) (Card, error) {
	if err := checkGroup(items, correctIndex); err != nil {
		return Card{}, err
	}
	choices := make([]Choice, 0, len(items))
	for _, it := range items[1:] {
		choices = append(choices, Choice{Label: it.Kanji})
	}
	return Card{
		Proposal: items[0].Meaning,
		Choices:  splice(choices, correctIndex, Choice{Label: items[0].Kanji}),
	}, nil
}

func checkGroup(items []Item, correctIndex int) error {
	if len(items) < 2 {
		return fmt.Errorf("%w: need at least 2 items, got %d", ErrInvalidGroup, len(items))
	}
	if correctIndex < 0 || correctIndex >= len(items) {
		return fmt.Errorf("%w: correct index %d out of range [0,%d)", ErrInvalidGroup, correctIndex, len(items))
	}
	return nil
}

func splice(choices []Choice, at int, answer Choice) []Choice {
	out := make([]Choice, 0, len(choices)+1)
	out = append(out, choices[:at]...)
	out = append(out, answer)
	return append(out, choices[at:]...)
}

// BuilderFor returns the orientation strategy of a mode.
func BuilderFor(mode gamemode.Mode) Builder {
	if mode == gamemode.Reverse {
		return ReverseBuilder{}
	}
	return ClassicBuilder{}
}
