package card

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/kanjiarena/kanji-arena/internal/vocabulary"
)

const DefaultChoicesPerCard = 3

// ErrInsufficientVocabulary means the grade pool cannot fill a single card.
var ErrInsufficientVocabulary = errors.New("insufficient vocabulary for grade")

// Sampler draws distinct random entries at or above a grade.
type Sampler interface {
	SampleItems(ctx context.Context, minGrade, count int) ([]vocabulary.Entry, error)
}

// Batch is a run of freshly drawn cards with their committed answers.
type Batch struct {
	Cards          []Card
	Answers        []string
	CorrectIndexes []int
}

// Len returns the number of cards in the batch.
func (b Batch) Len() int {
	return len(b.Cards)
}

// Generator samples vocabulary and renders multiple-choice cards.
type Generator struct {
	sampler Sampler
	policy  vocabulary.LanguagePolicy
	choices int
	intn    func(n int) int
}

func NewGenerator(sampler Sampler, policy vocabulary.LanguagePolicy, choicesPerCard int) *Generator {
	if choicesPerCard < 2 {
		choicesPerCard = DefaultChoicesPerCard
	}
	return &Generator{
		sampler: sampler,
		policy:  policy,
		choices: choicesPerCard,
		intn:    rand.IntN,
	}
}

// Draw builds `cards` cards for grade and lang with the given orientation.
// One sample round asks for every item at once; when the pool returns fewer,
// more rounds are drawn. Groups never straddle two rounds, so a card never
// shows the same kanji twice.
func (g *Generator) Draw(ctx context.Context, grade int, lang string, builder Builder, cards int) (Batch, error) {
	batch := Batch{
		Cards:          make([]Card, 0, cards),
		Answers:        make([]string, 0, cards),
		CorrectIndexes: make([]int, 0, cards),
	}

	for batch.Len() < cards {
		missing := cards - batch.Len()
		entries, err := g.sampler.SampleItems(ctx, grade, missing*g.choices)
		if err != nil {
			return Batch{}, fmt.Errorf("sample vocabulary: %w", err)
		}
		if len(entries) < g.choices {
			return Batch{}, fmt.Errorf("%w: grade %d yielded %d items, need %d per card",
				ErrInsufficientVocabulary, grade, len(entries), g.choices)
		}

		for start := 0; start+g.choices <= len(entries) && batch.Len() < cards; start += g.choices {
			group := g.toItems(entries[start:start+g.choices], lang)
			correctIndex := g.intn(g.choices)

			c, err := builder.BuildCard(group, correctIndex)
			if err != nil {
				return Batch{}, err
			}
			batch.Cards = append(batch.Cards, c)
			batch.Answers = append(batch.Answers, group[0].Kanji)
			batch.CorrectIndexes = append(batch.CorrectIndexes, correctIndex)
		}
	}
	return batch, nil
}

func (g *Generator) toItems(entries []vocabulary.Entry, lang string) []Item {
	items := make([]Item, len(entries))
	for i, e := range entries {
		meaning, extras := g.policy.Meanings(e, lang)
		items[i] = Item{Kanji: e.Kanji, Meaning: meaning, ExtraMeanings: extras}
	}
	return items
}
