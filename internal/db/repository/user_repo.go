package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kanjiarena/kanji-arena/internal/account"
)

// UserRepository reads the accounts this service needs.
type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID fetches a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (account.User, error) {
	var (
		u     account.User
		email pgtype.Text
	)
	err := r.db.QueryRow(ctx, `
		SELECT display_name, email, locale, alert_out_of_ranking
		FROM users WHERE id = $1`, toPGUUID(id)).
		Scan(&u.DisplayName, &email, &u.Locale, &u.AlertOutOfRanking)
	if isNoRows(err) {
		return account.User{}, account.ErrUserNotFound
	}
	if err != nil {
		return account.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	u.ID = id
	u.Email = email.String
	return u, nil
}

// SetAlertOptIn records whether the user wants out-of-ranking emails.
func (r *UserRepository) SetAlertOptIn(ctx context.Context, id uuid.UUID, enabled bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET alert_out_of_ranking = $2 WHERE id = $1`, toPGUUID(id), enabled)
	if err != nil {
		return fmt.Errorf("update alert opt-in: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return account.ErrUserNotFound
	}
	return nil
}
