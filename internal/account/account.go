package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when no account matches the id.
var ErrUserNotFound = errors.New("user not found")

// User is the slice of an account this service reads. Accounts are created
// and owned by the account service.
type User struct {
	ID                uuid.UUID
	DisplayName       string
	Email             string
	Locale            string
	AlertOutOfRanking bool
}

// Contactable reports whether the user wants, and can receive, ranking alerts.
func (u User) Contactable() bool {
	return u.AlertOutOfRanking && u.Email != ""
}

// Store reads and updates accounts.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	SetAlertOptIn(ctx context.Context, id uuid.UUID, enabled bool) error
}
