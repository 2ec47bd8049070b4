//go:build integration
// +build integration

package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanjiarena/kanji-arena/db/migrations"
	"github.com/kanjiarena/kanji-arena/internal/gamemode"
	"github.com/kanjiarena/kanji-arena/internal/leaderboard"
	"github.com/kanjiarena/kanji-arena/internal/progression"
	"github.com/kanjiarena/kanji-arena/internal/vocabulary"
)

// openTestDB migrates TEST_DATABASE_URL from scratch and returns a pool on it.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	sqlDB, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer sqlDB.Close()
	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Reset(sqlDB, "."))
	require.NoError(t, goose.Up(sqlDB, "."))

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func insertUser(t *testing.T, pool *pgxpool.Pool, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, display_name, email, locale) VALUES ($1, $2, $3, 'fr')`,
		toPGUUID(id), name, name+"@example.com")
	require.NoError(t, err)
	return id
}

func TestChronoRepositoryRanking(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	repo, err := NewChronoRepository(pool, gamemode.Classic)
	require.NoError(t, err)

	owner := insertUser(t, pool, "hanako")
	now := time.Now().UTC().Truncate(time.Millisecond)
	recs := []leaderboard.Record{
		{ID: uuid.New(), UserID: &owner, DurationMs: 3000, Grade: 2, CreatedAt: now},
		{ID: uuid.New(), DurationMs: 1000, Grade: 2, CreatedAt: now},
		{ID: uuid.New(), UserID: &owner, DurationMs: 2000, Grade: 2, CreatedAt: now},
		{ID: uuid.New(), DurationMs: 500, Grade: 3, CreatedAt: now},
	}
	for _, rec := range recs {
		require.NoError(t, repo.Insert(ctx, rec))
	}
	f := leaderboard.Filters{Grade: 2}

	below, err := repo.CountBelow(ctx, 2000, f)
	require.NoError(t, err)
	assert.Equal(t, 1, below)

	total, err := repo.Count(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	top, err := repo.FindTop(ctx, f, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(1000), top[0].DurationMs)
	assert.Nil(t, top[0].UserID)
	assert.Equal(t, "hanako", top[1].DisplayName)

	best, err := repo.FindUserBest(ctx, owner, f)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, int64(2000), best.DurationMs)

	at, err := repo.FindAt(ctx, f, 1, recs[1].ID)
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.Equal(t, recs[0].ID, at.ID)

	none, err := repo.FindAt(ctx, f, 5, uuid.Nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	other, err := NewChronoRepository(pool, gamemode.Reverse)
	require.NoError(t, err)
	n, err := other.Count(ctx, f)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProgressionRepositoryLifecycle(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	user := insertUser(t, pool, "taro")
	vocab := NewVocabularyRepository(pool)
	repo := NewProgressionRepository(pool)

	require.NoError(t, vocab.Upsert(ctx, []vocabulary.Entry{
		{Kanji: "水", Grade: 1, Meanings: map[string][]string{"en": {"water"}, "fr": {"eau"}}},
	}))

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.BulkUpsert(ctx, []progression.Record{
		{UserID: user, Item: "水", ErrorCount: 2, CreatedAt: now, UpdatedAt: now},
		{UserID: user, Item: "幽", ErrorCount: 1, CreatedAt: now, UpdatedAt: now},
	}))
	require.NoError(t, repo.BulkUpsert(ctx, []progression.Record{
		{UserID: user, Item: "幽", ErrorCount: 0, InProgress: true, CreatedAt: now, UpdatedAt: now},
	}))

	recs, err := repo.FindByUser(ctx, user)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	deleted, err := repo.DeleteResolved(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	rows, err := repo.ListLearning(ctx, user)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].ErrorCount)
	require.NotNil(t, rows[0].Entry)
	assert.Equal(t, []string{"eau"}, rows[0].Entry.Meanings["fr"])
}

func TestVocabularyAndUsers(t *testing.T) {
	pool := openTestDB(t)
	ctx := context.Background()
	vocab := NewVocabularyRepository(pool)

	require.NoError(t, vocab.Upsert(ctx, []vocabulary.Entry{
		{Kanji: "一", Grade: 1, Meanings: map[string][]string{"en": {"one"}}},
		{Kanji: "二", Grade: 1},
		{Kanji: "森", Grade: 4, Meanings: map[string][]string{"en": {"forest"}}},
	}))

	sample, err := vocab.SampleFromGrade(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, sample, 1)
	assert.Equal(t, "森", sample[0].Kanji)

	all, err := vocab.ListFromGrade(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	counts, err := vocab.CountByGrade(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 2, 4: 1}, counts)

	users := NewUserRepository(pool)
	id := insertUser(t, pool, "kenji")
	u, err := users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "kenji@example.com", u.Email)
	assert.True(t, u.AlertOutOfRanking)

	require.NoError(t, users.SetAlertOptIn(ctx, id, false))
	u, err = users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, u.Contactable())
}
