package gamemode

import (
	"errors"
	"fmt"
	"strconv"
)

// Mode selects the card orientation and the chrono table a session plays against.
type Mode string

const (
	Classic Mode = "classic" // kanji -> meaning
	Reverse Mode = "reverse" // meaning -> kanji
)

// ErrUnknownMode is returned when a route or token names a mode we do not serve.
var ErrUnknownMode = errors.New("unknown game mode")

// All lists every playable mode in display order.
var All = []Mode{Classic, Reverse}

// Parse validates a raw mode name.
func Parse(raw string) (Mode, error) {
	switch Mode(raw) {
	case Classic, Reverse:
		return Mode(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
}

func (m Mode) String() string {
	return string(m)
}

// Kind distinguishes ranked sessions from practice runs.
type Kind string

const (
	Timed    Kind = "timed"
	Training Kind = "training"
)

// RequiresRecord reports whether a win of this kind produces a chrono record.
func (k Kind) RequiresRecord() bool {
	return k != Training
}

// ErrInvalidGrade is returned for a difficulty grade outside the served range.
var ErrInvalidGrade = errors.New("invalid difficulty grade")

// Grades is the inclusive range of playable difficulty grades.
type Grades struct {
	Min int
	Max int
}

// DefaultGrades covers grades 1 through 5.
var DefaultGrades = Grades{Min: 1, Max: 5}

// Parse validates a raw grade from a route.
func (g Grades) Parse(raw string) (int, error) {
	grade, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidGrade, raw)
	}
	if err := g.Check(grade); err != nil {
		return 0, err
	}
	return grade, nil
}

// Check reports whether grade is within range.
func (g Grades) Check(grade int) error {
	if grade < g.Min || grade > g.Max {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidGrade, grade, g.Min, g.Max)
	}
	return nil
}
