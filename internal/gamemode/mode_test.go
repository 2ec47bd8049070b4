package gamemode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for _, m := range All {
		got, err := Parse(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	_, err := Parse("Classic")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestGrades(t *testing.T) {
	g := Grades{Min: 1, Max: 5}

	grade, err := g.Parse("5")
	require.NoError(t, err)
	assert.Equal(t, 5, grade)

	for _, raw := range []string{"0", "6", "", "two", "-1"} {
		_, err := g.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidGrade, raw)
	}
}

func TestTrainingLeavesNoRecord(t *testing.T) {
	assert.True(t, Timed.RequiresRecord())
	assert.False(t, Training.RequiresRecord())
}
