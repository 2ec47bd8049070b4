package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kanjiarena/kanji-arena/internal/gamemode"
	"github.com/kanjiarena/kanji-arena/internal/leaderboard"
)

// chronoTable maps a mode onto its chrono table.
func chronoTable(mode gamemode.Mode) (string, error) {
	switch mode {
	case gamemode.Classic:
		return "chronos_classic", nil
	case gamemode.Reverse:
		return "chronos_reverse", nil
	default:
		return "", fmt.Errorf("%w: %q", gamemode.ErrUnknownMode, mode)
	}
}

// ChronoRepository is the chrono table of one mode.
type ChronoRepository struct {
	db    DBTX
	table string

	selectCols string
	order      string
}

// NewChronoRepository binds the repository to the table of mode.
func NewChronoRepository(db DBTX, mode gamemode.Mode) (*ChronoRepository, error) {
	table, err := chronoTable(mode)
	if err != nil {
		return nil, err
	}
	return &ChronoRepository{
		db:         db,
		table:      table,
		selectCols: fmt.Sprintf(`c.id, c.user_id, COALESCE(u.display_name, ''), c.duration_ms, c.grade, c.created_at FROM %s c LEFT JOIN users u ON u.id = c.user_id`, table),
		order:      `ORDER BY c.duration_ms ASC, c.created_at ASC, c.id ASC`,
	}, nil
}

func (r *ChronoRepository) Insert(ctx context.Context, rec leaderboard.Record) error {
	_, err := r.db.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, user_id, duration_ms, grade, created_at) VALUES ($1, $2, $3, $4, $5)`, r.table),
		toPGUUID(rec.ID), toNullablePGUUID(rec.UserID), rec.DurationMs, rec.Grade, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", r.table, err)
	}
	return nil
}

func (r *ChronoRepository) CountBelow(ctx context.Context, durationMs int64, f leaderboard.Filters) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT count(*) FROM %s WHERE grade = $1 AND duration_ms < $2`, r.table),
		f.Grade, durationMs).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s below %d: %w", r.table, durationMs, err)
	}
	return n, nil
}

func (r *ChronoRepository) Count(ctx context.Context, f leaderboard.Filters) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s WHERE grade = $1`, r.table), f.Grade).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.table, err)
	}
	return n, nil
}

func (r *ChronoRepository) FindTop(ctx context.Context, f leaderboard.Filters, limit int) ([]leaderboard.Record, error) {
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT %s WHERE c.grade = $1 %s LIMIT $2`, r.selectCols, r.order),
		f.Grade, limit)
	if err != nil {
		return nil, fmt.Errorf("top of %s: %w", r.table, err)
	}
	defer rows.Close()

	var out []leaderboard.Record
	for rows.Next() {
		rec, err := scanChrono(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *ChronoRepository) FindUserBest(ctx context.Context, userID uuid.UUID, f leaderboard.Filters) (*leaderboard.Record, error) {
	row := r.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s WHERE c.grade = $1 AND c.user_id = $2 %s LIMIT 1`, r.selectCols, r.order),
		f.Grade, toPGUUID(userID))
	return r.optional(row)
}

func (r *ChronoRepository) FindAt(ctx context.Context, f leaderboard.Filters, offset int, excludeID uuid.UUID) (*leaderboard.Record, error) {
	row := r.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s WHERE c.grade = $1 AND c.id <> $2 %s OFFSET $3 LIMIT 1`, r.selectCols, r.order),
		f.Grade, toPGUUID(excludeID), offset)
	return r.optional(row)
}

func (r *ChronoRepository) optional(row pgx.Row) (*leaderboard.Record, error) {
	rec, err := scanChrono(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.table, err)
	}
	return &rec, nil
}

func scanChrono(row pgx.Row) (leaderboard.Record, error) {
	var (
		rec    leaderboard.Record
		id     pgtype.UUID
		userID pgtype.UUID
	)
	if err := row.Scan(&id, &userID, &rec.DisplayName, &rec.DurationMs, &rec.Grade, &rec.CreatedAt); err != nil {
		return leaderboard.Record{}, err
	}
	rec.ID = *fromPGUUID(id)
	rec.UserID = fromPGUUID(userID)
	return rec, nil
}
