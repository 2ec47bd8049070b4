package card

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanjiarena/kanji-arena/internal/gamemode"
	"github.com/kanjiarena/kanji-arena/internal/vocabulary"
)

func group() []Item {
	return []Item{
		{Kanji: "水", Meaning: "water", ExtraMeanings: []string{"fluid"}},
		{Kanji: "火", Meaning: "fire"},
		{Kanji: "木", Meaning: "tree", ExtraMeanings: []string{"wood"}},
	}
}

func TestClassicBuilderPlacesAnswerAtEveryIndex(t *testing.T) {
	for idx := 0; idx < 3; idx++ {
		c, err := ClassicBuilder{}.BuildCard(group(), idx)
		require.NoError(t, err)

		assert.Equal(t, "水", c.Proposal)
		require.Len(t, c.Choices, 3)
		assert.Equal(t, "water", c.Choices[idx].Label)
		assert.Equal(t, []string{"fluid"}, c.Choices[idx].ExtraMeanings)

		matches := 0
		for _, ch := range c.Choices {
			if ch.Label == "water" {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "exactly one choice is the answer")
	}
}

func TestClassicBuilderKeepsWrongChoiceOrder(t *testing.T) {
	c, err := ClassicBuilder{}.BuildCard(group(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"fire", "water", "tree"}, labels(c))
}

func TestReverseBuilderUsesKanjiLabels(t *testing.T) {
	c, err := ReverseBuilder{}.BuildCard(group(), 2)
	require.NoError(t, err)

	assert.Equal(t, "water", c.Proposal)
	assert.Equal(t, []string{"火", "木", "水"}, labels(c))
	for _, ch := range c.Choices {
		assert.Empty(t, ch.ExtraMeanings)
	}
}

func TestBuilderForMode(t *testing.T) {
	assert.IsType(t, ClassicBuilder{}, BuilderFor(gamemode.Classic))
	assert.IsType(t, ReverseBuilder{}, BuilderFor(gamemode.Reverse))
}

func TestBuilderRejectsBadGroups(t *testing.T) {
	_, err := ClassicBuilder{}.BuildCard(group(), 3)
	assert.ErrorIs(t, err, ErrInvalidGroup)

	_, err = ReverseBuilder{}.BuildCard(group()[:1], 0)
	assert.ErrorIs(t, err, ErrInvalidGroup)
}

type scriptedSampler struct {
	rounds [][]vocabulary.Entry
	asked  []int
	err    error
}

func (s *scriptedSampler) SampleItems(_ context.Context, _ int, count int) ([]vocabulary.Entry, error) {
	s.asked = append(s.asked, count)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.rounds) == 0 {
		return nil, nil
	}
	next := s.rounds[0]
	s.rounds = s.rounds[1:]
	return next, nil
}

func entries(n int, offset int) []vocabulary.Entry {
	out := make([]vocabulary.Entry, n)
	for i := range out {
		id := i + offset
		out[i] = vocabulary.Entry{
			Kanji:    fmt.Sprintf("k%d", id),
			Grade:    3,
			Meanings: map[string][]string{"en": {fmt.Sprintf("en%d", id)}, "fr": {fmt.Sprintf("fr%d", id)}},
		}
	}
	return out
}

func fixedIndex(idx int) func(int) int {
	return func(int) int { return idx }
}

func TestGeneratorDrawsOneRoundAndCommitsIndexes(t *testing.T) {
	sampler := &scriptedSampler{rounds: [][]vocabulary.Entry{entries(6, 0)}}
	gen := NewGenerator(sampler, vocabulary.DefaultLanguagePolicy(), 3)
	gen.intn = fixedIndex(1)

	batch, err := gen.Draw(context.Background(), 3, "fr", ClassicBuilder{}, 2)
	require.NoError(t, err)

	assert.Equal(t, []int{6}, sampler.asked)
	assert.Equal(t, []string{"k0", "k3"}, batch.Answers)
	assert.Equal(t, []int{1, 1}, batch.CorrectIndexes)
	assert.Equal(t, "k0", batch.Cards[0].Proposal)
	assert.Equal(t, []string{"fr1", "fr0", "fr2"}, labels(batch.Cards[0]))
	assert.Equal(t, "fr3", batch.Cards[1].Choices[1].Label)
}

func TestGeneratorTopsUpWithoutSplittingGroups(t *testing.T) {
	sampler := &scriptedSampler{rounds: [][]vocabulary.Entry{entries(4, 0), entries(3, 10)}}
	gen := NewGenerator(sampler, vocabulary.DefaultLanguagePolicy(), 3)
	gen.intn = fixedIndex(0)

	batch, err := gen.Draw(context.Background(), 3, "en", ReverseBuilder{}, 2)
	require.NoError(t, err)

	assert.Equal(t, []int{6, 3}, sampler.asked)
	assert.Equal(t, []string{"k0", "k10"}, batch.Answers)
	assert.Equal(t, "en10", batch.Cards[1].Proposal)
}

func TestGeneratorFailsWhenPoolTooSmall(t *testing.T) {
	sampler := &scriptedSampler{rounds: [][]vocabulary.Entry{entries(2, 0)}}
	gen := NewGenerator(sampler, vocabulary.DefaultLanguagePolicy(), 3)

	_, err := gen.Draw(context.Background(), 1, "en", ClassicBuilder{}, 1)
	assert.ErrorIs(t, err, ErrInsufficientVocabulary)
}

func TestGeneratorPropagatesSamplerErrors(t *testing.T) {
	boom := errors.New("pool unavailable")
	gen := NewGenerator(&scriptedSampler{err: boom}, vocabulary.DefaultLanguagePolicy(), 3)

	_, err := gen.Draw(context.Background(), 1, "en", ClassicBuilder{}, 1)
	assert.ErrorIs(t, err, boom)
}

func TestGeneratorUsesPlaceholderForMissingMeaning(t *testing.T) {
	pool := entries(3, 0)
	pool[0].Meanings = nil
	gen := NewGenerator(&scriptedSampler{rounds: [][]vocabulary.Entry{pool}}, vocabulary.DefaultLanguagePolicy(), 3)
	gen.intn = fixedIndex(2)

	batch, err := gen.Draw(context.Background(), 1, "ja", ClassicBuilder{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"en1", "en2", "?"}, labels(batch.Cards[0]))
}

func labels(c Card) []string {
	out := make([]string, len(c.Choices))
	for i, ch := range c.Choices {
		out[i] = ch.Label
	}
	return out
}
