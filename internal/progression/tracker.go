package progression

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kanjiarena/kanji-arena/internal/metrics"
	"github.com/kanjiarena/kanji-arena/internal/vocabulary"
)

// Outcome is how one played item was answered.
type Outcome struct {
	Item    string
	Correct bool
}

// Record is a user's error ledger for one item.
type Record struct {
	UserID     uuid.UUID
	Item       string
	ErrorCount int
	InProgress bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// LearningRow is a ledger record joined with its vocabulary entry, which is
// nil when the item is no longer in the vocabulary.
type LearningRow struct {
	Record
	Entry *vocabulary.Entry
}

// Store persists progression records.
type Store interface {
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Record, error)
	BulkUpsert(ctx context.Context, records []Record) error
	// DeleteResolved removes every record of the user whose error count is
	// zero or below.
	DeleteResolved(ctx context.Context, userID uuid.UUID) (int64, error)
	ListLearning(ctx context.Context, userID uuid.UUID) ([]LearningRow, error)
}

// Tracker merges finished sessions into the per-item error ledger.
type Tracker struct {
	store  Store
	policy vocabulary.LanguagePolicy
	logger zerolog.Logger
	now    func() time.Time
}

func NewTracker(store Store, policy vocabulary.LanguagePolicy, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		policy: policy,
		logger: logger.With().Str("component", "progression").Logger(),
		now:    time.Now,
	}
}

// Merge applies a session's outcomes. Misses are applied first and shadow any
// hit on the same item in the batch, so one session never both raises and
// lowers an item. Hits only relieve items that already have a record.
func (t *Tracker) Merge(ctx context.Context, userID uuid.UUID, outcomes []Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	existing, err := t.store.FindByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("find progression: %w", err)
	}
	byItem := make(map[string]*Record, len(existing))
	for i := range existing {
		byItem[existing[i].Item] = &existing[i]
	}

	now := t.now().UTC()
	missed := make(map[string]bool)
	var touched []*Record
	seen := make(map[*Record]bool)
	touch := func(rec *Record) {
		rec.UpdatedAt = now
		if !seen[rec] {
			seen[rec] = true
			touched = append(touched, rec)
		}
	}

	for _, o := range outcomes {
		if o.Correct {
			continue
		}
		rec, ok := byItem[o.Item]
		if !ok {
			rec = &Record{UserID: userID, Item: o.Item, CreatedAt: now}
			byItem[o.Item] = rec
		}
		rec.ErrorCount++
		rec.InProgress = false
		missed[o.Item] = true
		touch(rec)
	}

	for _, o := range outcomes {
		if !o.Correct || missed[o.Item] {
			continue
		}
		rec, ok := byItem[o.Item]
		if !ok {
			continue
		}
		if rec.ErrorCount > 0 {
			rec.ErrorCount--
		}
		rec.InProgress = true
		touch(rec)
	}

	if len(touched) > 0 {
		ops := make([]Record, len(touched))
		for i, rec := range touched {
			ops[i] = *rec
		}
		if err := t.store.BulkUpsert(ctx, ops); err != nil {
			return fmt.Errorf("upsert progression: %w", err)
		}
	}

	deleted, err := t.store.DeleteResolved(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete resolved progression: %w", err)
	}

	metrics.ProgressionMerges.Inc()
	t.logger.Debug().
		Str("user_id", userID.String()).
		Int("outcomes", len(outcomes)).
		Int("written", len(touched)).
		Int64("resolved", deleted).
		Msg("progression merged")
	return nil
}

// LearningItem is one entry of a user's learning space.
type LearningItem struct {
	Kanji        string        `json:"kanji"`
	ErrorCount   int           `json:"errorCount"`
	InProgress   bool          `json:"inProgress"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	KanjiDetails *KanjiDetails `json:"kanjiDetails,omitempty"`
}

// KanjiDetails carries the vocabulary side of a learning item.
type KanjiDetails struct {
	Grade   int      `json:"grade"`
	Meaning []string `json:"meaning"`
}

// LearningSpace lists the items a user still has to master, worst first:
// error count descending, then most recently updated, then most recently
// created. Meanings are shown in lang, falling back per the language policy.
func (t *Tracker) LearningSpace(ctx context.Context, userID uuid.UUID, lang string) ([]LearningItem, error) {
	rows, err := t.store.ListLearning(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list learning space: %w", err)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ErrorCount != b.ErrorCount {
			return a.ErrorCount > b.ErrorCount
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	items := make([]LearningItem, len(rows))
	for i, row := range rows {
		items[i] = LearningItem{
			Kanji:      row.Item,
			ErrorCount: row.ErrorCount,
			InProgress: row.InProgress,
			CreatedAt:  row.CreatedAt,
			UpdatedAt:  row.UpdatedAt,
		}
		if row.Entry != nil {
			primary, extras := t.policy.Meanings(*row.Entry, lang)
			items[i].KanjiDetails = &KanjiDetails{
				Grade:   row.Entry.Grade,
				Meaning: append([]string{primary}, extras...),
			}
		}
	}
	return items, nil
}
