package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kanjiarena/kanji-arena/internal/vocabulary"
)

// VocabularyRepository reads and seeds the kanjis table.
type VocabularyRepository struct {
	db DBTX
}

func NewVocabularyRepository(db DBTX) *VocabularyRepository {
	return &VocabularyRepository{db: db}
}

// ListFromGrade returns every entry at or above minGrade.
func (r *VocabularyRepository) ListFromGrade(ctx context.Context, minGrade int) ([]vocabulary.Entry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT kanji, grade, meanings FROM kanjis WHERE grade >= $1 ORDER BY kanji`, minGrade)
	if err != nil {
		return nil, fmt.Errorf("list kanjis: %w", err)
	}
	return collectEntries(rows)
}

// SampleFromGrade draws count distinct random entries at or above minGrade.
func (r *VocabularyRepository) SampleFromGrade(ctx context.Context, minGrade, count int) ([]vocabulary.Entry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT kanji, grade, meanings FROM kanjis WHERE grade >= $1 ORDER BY random() LIMIT $2`, minGrade, count)
	if err != nil {
		return nil, fmt.Errorf("sample kanjis: %w", err)
	}
	return collectEntries(rows)
}

// Upsert inserts or replaces entries keyed by kanji in one batch.
func (r *VocabularyRepository) Upsert(ctx context.Context, entries []vocabulary.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO kanjis (kanji, grade, meanings)
			VALUES ($1, $2, $3)
			ON CONFLICT (kanji) DO UPDATE SET grade = EXCLUDED.grade, meanings = EXCLUDED.meanings`,
			e.Kanji, e.Grade, meaningsOrEmpty(e.Meanings))
	}
	if err := execBatch(ctx, r.db, batch); err != nil {
		return fmt.Errorf("upsert kanjis: %w", err)
	}
	return nil
}

// CountByGrade returns the number of entries per exact grade.
func (r *VocabularyRepository) CountByGrade(ctx context.Context) (map[int]int, error) {
	rows, err := r.db.Query(ctx, `SELECT grade, count(*) FROM kanjis GROUP BY grade ORDER BY grade`)
	if err != nil {
		return nil, fmt.Errorf("count kanjis: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var grade, n int
		if err := rows.Scan(&grade, &n); err != nil {
			return nil, err
		}
		counts[grade] = n
	}
	return counts, rows.Err()
}

func collectEntries(rows pgx.Rows) ([]vocabulary.Entry, error) {
	defer rows.Close()
	var out []vocabulary.Entry
	for rows.Next() {
		var e vocabulary.Entry
		if err := rows.Scan(&e.Kanji, &e.Grade, &e.Meanings); err != nil {
			return nil, fmt.Errorf("scan kanji: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func meaningsOrEmpty(m map[string][]string) map[string][]string {
	if m == nil {
		return map[string][]string{}
	}
	return m
}
