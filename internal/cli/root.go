// Package cli defines the Cobra commands of kanjictl, the vocabulary admin tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kanjiarena/kanji-arena/internal/config"
	"github.com/kanjiarena/kanji-arena/internal/db/repository"
	"github.com/kanjiarena/kanji-arena/internal/gamemode"
	"github.com/kanjiarena/kanji-arena/internal/vocabulary"
)

var version = "dev" // set via ldflags at build time

type vocabStore interface {
	Upsert(ctx context.Context, entries []vocabulary.Entry) error
	CountByGrade(ctx context.Context) (map[int]int, error)
}

type poolCache interface {
	Invalidate(ctx context.Context, grades ...int) error
}

// backend is what the vocab commands talk to.
type backend struct {
	store  vocabStore
	cache  poolCache
	grades gamemode.Grades
	close  func()
}

// connectFunc opens the backend; tests replace it.
type connectFunc func(ctx context.Context, logger zerolog.Logger) (*backend, error)

// NewRootCommand assembles kanjictl.
func NewRootCommand(connect connectFunc) *cobra.Command {
	if connect == nil {
		connect = connectFromEnv
	}
	root := &cobra.Command{
		Use:           "kanjictl",
		Short:         "Administer the kanji vocabulary",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newVocabCommand(connect))
	return root
}

// Execute runs kanjictl. Called from main.
func Execute() {
	if err := NewRootCommand(nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type connEnv struct {
	Postgres config.Postgres
	Redis    config.Redis
	MinGrade int `env:"MIN_GRADE" envDefault:"1"`
	MaxGrade int `env:"MAX_GRADE" envDefault:"5"`
}

func connectFromEnv(ctx context.Context, logger zerolog.Logger) (*backend, error) {
	var cfg connEnv
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})

	repo := repository.NewVocabularyRepository(pool)
	return &backend{
		store:  repo,
		cache:  vocabulary.NewSampler(rdb, repo, 0, logger),
		grades: gamemode.Grades{Min: cfg.MinGrade, Max: cfg.MaxGrade},
		close: func() {
			_ = rdb.Close()
			pool.Close()
		},
	}, nil
}

func cliLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
}
