package leaderboard

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filters narrows a leaderboard. Records only compete with records of the
// same difficulty grade.
type Filters struct {
	Grade int
}

// Record is one immutable chrono: the time a session took to reach the win.
type Record struct {
	ID          uuid.UUID
	UserID      *uuid.UUID
	DisplayName string
	DurationMs  int64
	Grade       int
	CreatedAt   time.Time
}

// Anonymous reports whether the record has no identified owner.
func (r Record) Anonymous() bool {
	return r.UserID == nil
}

// OwnedBy reports whether userID owns the record.
func (r Record) OwnedBy(userID uuid.UUID) bool {
	return r.UserID != nil && *r.UserID == userID
}

// Entry is a ranked record as shown to players.
type Entry struct {
	Rank        int       `json:"ranking"`
	DisplayName string    `json:"username"`
	DurationMs  int64     `json:"chronoValue"`
	Grade       int       `json:"difficultyGrade"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Metrics summarizes a board.
type Metrics struct {
	NbLimitRanking int `json:"nbLimitRanking"`
	TotalChronos   int `json:"totalChronos"`
}

// Board is the ranking page of one mode and grade.
type Board struct {
	Metrics  Metrics `json:"metrics"`
	UserBest *Entry  `json:"userBestChrono"`
	Chronos  []Entry `json:"chronos"`
}

// Store is the durable chrono table of a single mode.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	// CountBelow counts records strictly faster than durationMs.
	CountBelow(ctx context.Context, durationMs int64, f Filters) (int, error)
	Count(ctx context.Context, f Filters) (int, error)
	// FindTop returns up to limit records, fastest first.
	FindTop(ctx context.Context, f Filters, limit int) ([]Record, error)
	// FindUserBest returns nil when the user has no record.
	FindUserBest(ctx context.Context, userID uuid.UUID, f Filters) (*Record, error)
	// FindAt returns the record at offset in ascending duration order,
	// skipping excludeID, or nil past the end.
	FindAt(ctx context.Context, f Filters, offset int, excludeID uuid.UUID) (*Record, error)
}
