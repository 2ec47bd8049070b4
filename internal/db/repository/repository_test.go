package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kanjiarena/kanji-arena/internal/account"
	"github.com/kanjiarena/kanji-arena/internal/gamemode"
	"github.com/kanjiarena/kanji-arena/internal/leaderboard"
)

type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	ret := m.Called(ctx, sql, args)
	return ret.Get(0).(pgconn.CommandTag), ret.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	ret := m.Called(ctx, sql, args)
	rows, _ := ret.Get(0).(pgx.Rows)
	return rows, ret.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.Called(ctx, sql, args).Get(0).(pgx.Row)
}

func (m *mockDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return m.Called(ctx, b).Get(0).(pgx.BatchResults)
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}

func TestChronoTablePerMode(t *testing.T) {
	table, err := chronoTable(gamemode.Classic)
	require.NoError(t, err)
	assert.Equal(t, "chronos_classic", table)

	table, err = chronoTable(gamemode.Reverse)
	require.NoError(t, err)
	assert.Equal(t, "chronos_reverse", table)

	_, err = NewChronoRepository(new(mockDB), gamemode.Mode("speed"))
	assert.ErrorIs(t, err, gamemode.ErrUnknownMode)
}

func TestUUIDConversions(t *testing.T) {
	id := uuid.New()
	pg := toPGUUID(id)
	assert.True(t, pg.Valid)
	require.NotNil(t, fromPGUUID(pg))
	assert.Equal(t, id, *fromPGUUID(pg))

	assert.False(t, toNullablePGUUID(nil).Valid)
	assert.Nil(t, fromPGUUID(toNullablePGUUID(nil)))
}

func TestChronoInsertAnonymousRecord(t *testing.T) {
	db := new(mockDB)
	repo, err := NewChronoRepository(db, gamemode.Reverse)
	require.NoError(t, err)

	rec := leaderboard.Record{ID: uuid.New(), DurationMs: 1234, Grade: 2}
	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return assert.Contains(t, sql, "INSERT INTO chronos_reverse")
	}), mock.MatchedBy(func(args []any) bool {
		owner, ok := args[1].(pgtype.UUID)
		return len(args) == 5 && ok && !owner.Valid && args[2] == int64(1234)
	})).Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	require.NoError(t, repo.Insert(context.Background(), rec))
	db.AssertExpectations(t)
}

func TestChronoOptionalRowsMapToNil(t *testing.T) {
	db := new(mockDB)
	repo, err := NewChronoRepository(db, gamemode.Classic)
	require.NoError(t, err)

	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(errRow{err: pgx.ErrNoRows})

	best, err := repo.FindUserBest(context.Background(), uuid.New(), leaderboard.Filters{Grade: 1})
	require.NoError(t, err)
	assert.Nil(t, best)

	at, err := repo.FindAt(context.Background(), leaderboard.Filters{Grade: 1}, 4, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, at)
}

func TestChronoOptionalRowsReportFailures(t *testing.T) {
	db := new(mockDB)
	repo, err := NewChronoRepository(db, gamemode.Classic)
	require.NoError(t, err)

	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(errRow{err: errors.New("conn reset")})

	_, err = repo.FindAt(context.Background(), leaderboard.Filters{Grade: 1}, 0, uuid.New())
	assert.ErrorContains(t, err, "conn reset")
}

func TestUserGetByIDNotFound(t *testing.T) {
	db := new(mockDB)
	repo := NewUserRepository(db)
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(errRow{err: pgx.ErrNoRows})

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, account.ErrUserNotFound)
}

func TestUserSetAlertOptIn(t *testing.T) {
	id := uuid.New()

	db := new(mockDB)
	db.On("Exec", mock.Anything, mock.Anything, []any{toPGUUID(id), false}).Return(pgconn.NewCommandTag("UPDATE 1"), nil)
	require.NoError(t, NewUserRepository(db).SetAlertOptIn(context.Background(), id, false))
	db.AssertExpectations(t)

	missing := new(mockDB)
	missing.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(pgconn.NewCommandTag("UPDATE 0"), nil)
	assert.ErrorIs(t, NewUserRepository(missing).SetAlertOptIn(context.Background(), id, true), account.ErrUserNotFound)
}

func TestProgressionDeleteResolvedReportsCount(t *testing.T) {
	db := new(mockDB)
	db.On("Exec", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return assert.Contains(t, sql, "error_count <= 0")
	}), mock.Anything).Return(pgconn.NewCommandTag("DELETE 3"), nil)

	n, err := NewProgressionRepository(db).DeleteResolved(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestEmptyBatchesSkipTheDatabase(t *testing.T) {
	db := new(mockDB)

	require.NoError(t, NewProgressionRepository(db).BulkUpsert(context.Background(), nil))
	require.NoError(t, NewVocabularyRepository(db).Upsert(context.Background(), nil))
	db.AssertNotCalled(t, "SendBatch", mock.Anything, mock.Anything)
}
