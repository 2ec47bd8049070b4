package game

import (
	"errors"

	"github.com/kanjiarena/kanji-arena/internal/gamemode"
)

var (
	// ErrMissingParameters is returned before any token work when the token or
	// the chosen index is absent.
	ErrMissingParameters = errors.New("missing game token or choice index")

	// ErrPersistence wraps chrono and progression write failures on a win.
	ErrPersistence = errors.New("persistence failure")

	ErrInvalidGrade = gamemode.ErrInvalidGrade
)
