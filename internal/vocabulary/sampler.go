package vocabulary

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kanjiarena/kanji-arena/internal/metrics"
)

const (
	defaultPoolTTL = 10 * time.Minute
	defaultPrefix  = "vocab"
)

// setClient is the subset of *redis.Client the sampler needs.
type setClient interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	SRandMemberN(ctx context.Context, key string, count int64) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Sampler draws random entries from a Redis set holding the grade pool, warming
// the set from Postgres on a miss. SRANDMEMBER with a positive count never
// repeats a member, so every draw is a sample without replacement.
type Sampler struct {
	client setClient
	store  Store
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

// NewSampler builds a sampler; a zero ttl uses the default pool lifetime.
func NewSampler(client setClient, store Store, ttl time.Duration, logger zerolog.Logger) *Sampler {
	if ttl <= 0 {
		ttl = defaultPoolTTL
	}
	return &Sampler{
		client: client,
		store:  store,
		ttl:    ttl,
		prefix: defaultPrefix,
		logger: logger.With().Str("component", "vocabulary_sampler").Logger(),
	}
}

func (s *Sampler) key(minGrade int) string {
	return fmt.Sprintf("%s:grade:%d", s.prefix, minGrade)
}

// SampleItems returns up to count distinct entries with grade >= minGrade.
func (s *Sampler) SampleItems(ctx context.Context, minGrade, count int) ([]Entry, error) {
	if count <= 0 {
		return nil, nil
	}

	entries, err := s.sampleCached(ctx, minGrade, count)
	if err == nil {
		return entries, nil
	}

	metrics.VocabularyDraws.WithLabelValues("store").Inc()
	s.logger.Warn().Err(err).Int("grade", minGrade).Msg("redis sample failed, drawing from store")
	return s.store.SampleFromGrade(ctx, minGrade, count)
}

func (s *Sampler) sampleCached(ctx context.Context, minGrade, count int) ([]Entry, error) {
	key := s.key(minGrade)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("check pool: %w", err)
	}
	if exists == 0 {
		metrics.VocabularyDraws.WithLabelValues("miss").Inc()
		if err := s.warm(ctx, key, minGrade); err != nil {
			return nil, err
		}
	} else {
		metrics.VocabularyDraws.WithLabelValues("hit").Inc()
	}

	members, err := s.client.SRandMemberN(ctx, key, int64(count)).Result()
	if err != nil {
		return nil, fmt.Errorf("sample pool: %w", err)
	}
	if len(members) == 0 && exists != 0 {
		// Expired between EXISTS and SRANDMEMBER.
		metrics.VocabularyDraws.WithLabelValues("miss").Inc()
		if err := s.warm(ctx, key, minGrade); err != nil {
			return nil, err
		}
		if members, err = s.client.SRandMemberN(ctx, key, int64(count)).Result(); err != nil {
			return nil, fmt.Errorf("sample pool: %w", err)
		}
	}

	entries := make([]Entry, 0, len(members))
	for _, raw := range members {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode pool member: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Sampler) warm(ctx context.Context, key string, minGrade int) error {
	entries, err := s.store.ListFromGrade(ctx, minGrade)
	if err != nil {
		return fmt.Errorf("load grade pool: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	members := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		members = append(members, string(data))
	}

	if err := s.client.SAdd(ctx, key, members...).Err(); err != nil {
		return fmt.Errorf("warm pool: %w", err)
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("expire pool: %w", err)
	}

	s.logger.Debug().Int("grade", minGrade).Int("entries", len(entries)).Msg("grade pool warmed")
	return nil
}

// Invalidate drops the cached pools for the given grades (after an import).
func (s *Sampler) Invalidate(ctx context.Context, grades ...int) error {
	if len(grades) == 0 {
		return nil
	}
	keys := make([]string, len(grades))
	for i, g := range grades {
		keys[i] = s.key(g)
	}
	return s.client.Del(ctx, keys...).Err()
}
