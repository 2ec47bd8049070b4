package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kanjiarena/kanji-arena/internal/gamemode"
	ws "github.com/kanjiarena/kanji-arena/pkg/http/ws"
)

const (
	DefaultChannel        = "lb:updates"
	DefaultAnonymousLabel = "anonymous"
	defaultLimit          = 100
	updateTopN            = 10
)

// publisher is the subset of *redis.Client used to announce new records.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// ServiceOptions configures leaderboard service behavior.
type ServiceOptions struct {
	Limit          int
	AnonymousLabel string
	PubSubChannel  string
}

// Service ranks the chronos of one mode. Ranks are computed at read time as
// one plus the number of strictly faster records, so equal durations share a
// rank. Concurrent inserts may make a returned rank stale.
type Service struct {
	mode      gamemode.Mode
	store     Store
	publisher publisher
	logger    zerolog.Logger
	limit     int
	anonymous string
	channel   string
	now       func() time.Time
}

// NewService constructs a leaderboard service bound to the store of mode.
// A nil publisher disables live updates.
func NewService(mode gamemode.Mode, store Store, pub publisher, logger zerolog.Logger, opts ServiceOptions) *Service {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	label := opts.AnonymousLabel
	if label == "" {
		label = DefaultAnonymousLabel
	}
	channel := opts.PubSubChannel
	if channel == "" {
		channel = DefaultChannel
	}

	return &Service{
		mode:      mode,
		store:     store,
		publisher: pub,
		logger:    logger.With().Str("component", "leaderboard").Str("mode", mode.String()).Logger(),
		limit:     limit,
		anonymous: label,
		channel:   channel,
		now:       time.Now,
	}
}

// Mode returns the mode whose records this service ranks.
func (s *Service) Mode() gamemode.Mode {
	return s.mode
}

// Rank returns 1 + the number of records strictly faster than durationMs.
func (s *Service) Rank(ctx context.Context, durationMs int64, f Filters) (int, error) {
	below, err := s.store.CountBelow(ctx, durationMs, f)
	if err != nil {
		return 0, fmt.Errorf("count records below %d: %w", durationMs, err)
	}
	return below + 1, nil
}

// Top returns the limit fastest records with their ranks.
func (s *Service) Top(ctx context.Context, limit int, f Filters) ([]Entry, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	records, err := s.store.FindTop(ctx, f, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch top records: %w", err)
	}

	entries := make([]Entry, len(records))
	for i, rec := range records {
		rank := i + 1
		if i > 0 && rec.DurationMs == records[i-1].DurationMs {
			rank = entries[i-1].Rank
		}
		entries[i] = s.toEntry(rec, rank)
	}
	return entries, nil
}

// PersonalBest returns the user's fastest record and its rank, or nil.
func (s *Service) PersonalBest(ctx context.Context, userID uuid.UUID, f Filters) (*Entry, error) {
	best, err := s.store.FindUserBest(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("find user best: %w", err)
	}
	if best == nil {
		return nil, nil
	}
	rank, err := s.Rank(ctx, best.DurationMs, f)
	if err != nil {
		return nil, err
	}
	entry := s.toEntry(*best, rank)
	return &entry, nil
}

// Board assembles the ranking page; userID may be nil for anonymous viewers.
func (s *Service) Board(ctx context.Context, f Filters, userID *uuid.UUID) (Board, error) {
	chronos, err := s.Top(ctx, s.limit, f)
	if err != nil {
		return Board{}, err
	}
	total, err := s.store.Count(ctx, f)
	if err != nil {
		return Board{}, fmt.Errorf("count records: %w", err)
	}

	board := Board{
		Metrics: Metrics{NbLimitRanking: s.limit, TotalChronos: total},
		Chronos: chronos,
	}
	if userID != nil {
		if board.UserBest, err = s.PersonalBest(ctx, *userID, f); err != nil {
			return Board{}, err
		}
	}
	return board, nil
}

// Record stores a new chrono and announces it to live subscribers.
func (s *Service) Record(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("insert chrono: %w", err)
	}

	if s.publisher != nil {
		go s.publishUpdate(context.Background(), Filters{Grade: rec.Grade})
	}
	return rec, nil
}

// Displaced returns the record sitting right after rank once excludeID is
// set aside, i.e. the one a new record at rank pushed down. Nil when the
// board ends before that position.
func (s *Service) Displaced(ctx context.Context, rank int, f Filters, excludeID uuid.UUID) (*Record, error) {
	if rank < 1 {
		return nil, nil
	}
	rec, err := s.store.FindAt(ctx, f, rank-1, excludeID)
	if err != nil {
		return nil, fmt.Errorf("find record at rank %d: %w", rank, err)
	}
	return rec, nil
}

// UserBestRecord returns the raw fastest record of a user, or nil.
func (s *Service) UserBestRecord(ctx context.Context, userID uuid.UUID, f Filters) (*Record, error) {
	rec, err := s.store.FindUserBest(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("find user best: %w", err)
	}
	return rec, nil
}

// Snapshot builds the live-stream view of a board.
func (s *Service) Snapshot(ctx context.Context, f Filters) (ws.LeaderboardUpdatePayload, error) {
	top, err := s.Top(ctx, updateTopN, f)
	if err != nil {
		return ws.LeaderboardUpdatePayload{}, err
	}
	total, err := s.store.Count(ctx, f)
	if err != nil {
		return ws.LeaderboardUpdatePayload{}, fmt.Errorf("count records: %w", err)
	}
	return ws.LeaderboardUpdatePayload{
		Mode:         s.mode.String(),
		Grade:        f.Grade,
		TotalChronos: total,
		Top:          toWSEntries(top),
	}, nil
}

func (s *Service) publishUpdate(ctx context.Context, f Filters) {
	payload, err := s.Snapshot(ctx, f)
	if err != nil {
		s.logger.Warn().Err(err).Int("grade", f.Grade).Msg("failed to collect leaderboard update")
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal leaderboard update")
		return
	}
	if err := s.publisher.Publish(ctx, s.channel, data).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish leaderboard update")
	}
}

func (s *Service) toEntry(rec Record, rank int) Entry {
	name := rec.DisplayName
	if rec.Anonymous() || name == "" {
		name = s.anonymous
	}
	return Entry{
		Rank:        rank,
		DisplayName: name,
		DurationMs:  rec.DurationMs,
		Grade:       rec.Grade,
		CreatedAt:   rec.CreatedAt,
	}
}

func toWSEntries(entries []Entry) []ws.LeaderboardEntry {
	result := make([]ws.LeaderboardEntry, len(entries))
	for i, e := range entries {
		result[i] = ws.LeaderboardEntry{
			Rank:        e.Rank,
			DisplayName: e.DisplayName,
			DurationMs:  e.DurationMs,
		}
	}
	return result
}
