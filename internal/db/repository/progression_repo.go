package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kanjiarena/kanji-arena/internal/progression"
	"github.com/kanjiarena/kanji-arena/internal/vocabulary"
)

// ProgressionRepository persists the per-user error ledger.
type ProgressionRepository struct {
	db DBTX
}

func NewProgressionRepository(db DBTX) *ProgressionRepository {
	return &ProgressionRepository{db: db}
}

func (r *ProgressionRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]progression.Record, error) {
	rows, err := r.db.Query(ctx, `
		SELECT kanji, error_count, in_progress, created_at, updated_at
		FROM progressions WHERE user_id = $1`, toPGUUID(userID))
	if err != nil {
		return nil, fmt.Errorf("find progressions: %w", err)
	}
	defer rows.Close()

	var out []progression.Record
	for rows.Next() {
		rec := progression.Record{UserID: userID}
		if err := rows.Scan(&rec.Item, &rec.ErrorCount, &rec.InProgress, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progression: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// BulkUpsert writes every record in one round trip, keyed by (user, kanji).
func (r *ProgressionRepository) BulkUpsert(ctx context.Context, records []progression.Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO progressions (user_id, kanji, error_count, in_progress, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id, kanji) DO UPDATE
			SET error_count = EXCLUDED.error_count,
			    in_progress = EXCLUDED.in_progress,
			    updated_at  = EXCLUDED.updated_at`,
			toPGUUID(rec.UserID), rec.Item, rec.ErrorCount, rec.InProgress, rec.CreatedAt, rec.UpdatedAt)
	}
	if err := execBatch(ctx, r.db, batch); err != nil {
		return fmt.Errorf("upsert progressions: %w", err)
	}
	return nil
}

func (r *ProgressionRepository) DeleteResolved(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM progressions WHERE user_id = $1 AND error_count <= 0`, toPGUUID(userID))
	if err != nil {
		return 0, fmt.Errorf("delete resolved progressions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListLearning joins the ledger with the vocabulary. Items missing from the
// vocabulary come back with a nil entry.
func (r *ProgressionRepository) ListLearning(ctx context.Context, userID uuid.UUID) ([]progression.LearningRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.kanji, p.error_count, p.in_progress, p.created_at, p.updated_at, k.grade, k.meanings
		FROM progressions p
		LEFT JOIN kanjis k ON k.kanji = p.kanji
		WHERE p.user_id = $1`, toPGUUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list learning space: %w", err)
	}
	defer rows.Close()

	var out []progression.LearningRow
	for rows.Next() {
		var (
			row      progression.LearningRow
			grade    pgtype.Int4
			meanings map[string][]string
		)
		row.UserID = userID
		if err := rows.Scan(&row.Item, &row.ErrorCount, &row.InProgress, &row.CreatedAt, &row.UpdatedAt, &grade, &meanings); err != nil {
			return nil, fmt.Errorf("scan learning row: %w", err)
		}
		if grade.Valid {
			row.Entry = &vocabulary.Entry{Kanji: row.Item, Grade: int(grade.Int32), Meanings: meanings}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
