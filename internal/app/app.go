package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kanjiarena/kanji-arena/internal/account"
	authjwt "github.com/kanjiarena/kanji-arena/internal/auth/jwt"
	"github.com/kanjiarena/kanji-arena/internal/config"
	"github.com/kanjiarena/kanji-arena/internal/db/repository"
	"github.com/kanjiarena/kanji-arena/internal/game"
	"github.com/kanjiarena/kanji-arena/internal/game/card"
	"github.com/kanjiarena/kanji-arena/internal/game/session"
	"github.com/kanjiarena/kanji-arena/internal/gamemode"
	"github.com/kanjiarena/kanji-arena/internal/leaderboard"
	"github.com/kanjiarena/kanji-arena/internal/logging"
	"github.com/kanjiarena/kanji-arena/internal/notify"
	"github.com/kanjiarena/kanji-arena/internal/progression"
	"github.com/kanjiarena/kanji-arena/internal/server"
	"github.com/kanjiarena/kanji-arena/internal/vocabulary"
	ws "github.com/kanjiarena/kanji-arena/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	conns connections
	http  *http.Server

	lbBroadcaster *leaderboard.Broadcaster
	notifyWorker  *notify.Worker
	bgCancels     []context.CancelFunc
}

// New bootstraps configs, logger, Postgres, Redis and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	conns := connections{pool: pool, redis: redisClient}
	a, err := assemble(ctx, cfg, logger, conns)
	if err != nil {
		conns.close(logger)
		return nil, err
	}
	return a, nil
}

// connections are the long-lived clients an Application owns.
type connections struct {
	pool  *pgxpool.Pool
	redis *redis.Client
}

func (c connections) close(logger zerolog.Logger) {
	c.pool.Close()
	if err := c.redis.Close(); err != nil {
		logger.Error().Err(err).Msg("redis shutdown error")
	}
}

func assemble(ctx context.Context, cfg *config.App, logger zerolog.Logger, conns connections) (*Application, error) {
	pool, redisClient := conns.pool, conns.redis

	codec, err := session.NewCodec(session.Options{
		EncryptionSecret: cfg.Security.GameAESKey,
		SigningSecret:    cfg.Security.GameTokenSecret,
		TTL:              cfg.Game.TokenTTL,
		Issuer:           cfg.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("session codec: %w", err)
	}

	mailer, err := newMailer(ctx, cfg.Notify, logger)
	if err != nil {
		return nil, fmt.Errorf("notification transport: %w", err)
	}

	policy := vocabulary.LanguagePolicy{
		Native:      cfg.Vocabulary.NativeLanguages,
		Fallback:    cfg.Vocabulary.FallbackLanguage,
		Placeholder: cfg.Vocabulary.MeaningPlaceholder,
	}
	grades := gamemode.Grades{Min: cfg.Game.MinGrade, Max: cfg.Game.MaxGrade}

	vocabRepo := repository.NewVocabularyRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	progressionRepo := repository.NewProgressionRepository(pool)

	sampler := vocabulary.NewSampler(redisClient, vocabRepo, cfg.Vocabulary.CacheTTL, logger)
	generator := card.NewGenerator(sampler, policy, cfg.Game.ChoicesPerCard)
	tracker := progression.NewTracker(progressionRepo, policy, logger)

	// One board per mode, resolved here and never changed afterwards.
	boards := make([]*leaderboard.Service, 0, len(gamemode.All))
	rankings := make(map[gamemode.Mode]notify.Ranking, len(gamemode.All))
	for _, mode := range gamemode.All {
		chronos, err := repository.NewChronoRepository(pool, mode)
		if err != nil {
			return nil, err
		}
		svc := leaderboard.NewService(mode, chronos, redisClient, logger, leaderboard.ServiceOptions{
			Limit:          cfg.Game.RankingLimit,
			AnonymousLabel: cfg.Game.AnonymousLabel,
			PubSubChannel:  leaderboard.DefaultChannel,
		})
		boards = append(boards, svc)
		rankings[mode] = svc
	}

	notifier := notify.NewNotifier(rankings, userRepo, mailer, logger, notify.Options{
		RankThreshold: cfg.Notify.RankThreshold,
		SiteName:      cfg.Notify.FromName,
	})
	notifyWorker := notify.NewWorker(notifier, cfg.Notify.QueueSize, cfg.Notify.SendTimeout, logger)

	rules := game.Rules{
		WinningThreshold: cfg.Game.WinningThreshold,
		Oversampling:     cfg.Game.Oversampling,
		Grades:           grades,
	}
	engines := make([]*game.Engine, 0, len(boards))
	for _, board := range boards {
		engines = append(engines, game.NewEngine(board.Mode(), game.Deps{
			Cards:       generator,
			Sessions:    codec,
			Ranking:     board,
			Progression: tracker,
			Alerts:      notifyWorker,
		}, rules, logger))
	}

	wsHub := ws.NewHub(logger)
	lbBroadcaster := leaderboard.NewBroadcaster(redisClient, wsHub, leaderboard.DefaultChannel, logger)

	tokens := authjwt.NewManager(authjwt.TokenConfig{
		AccessSecret: []byte(cfg.Security.JWTSecret),
		Issuer:       cfg.Security.JWTIssuer,
	})

	apiServer := server.NewHTTPServer(cfg, logger, server.Handlers{
		Game:        game.NewHTTPHandler(engines, logger),
		Leaderboard: leaderboard.NewHTTPHandler(boards, grades, wsHub, ws.NewUpgrader(cfg.CORS.AllowedOrigins), logger),
		Progression: progression.NewHTTPHandler(tracker, logger),
		Account:     account.NewHTTPHandler(userRepo, logger),
		Tokens:      tokens,
		Pingers: map[string]server.Pinger{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	return &Application{
		cfg:           cfg,
		logger:        logger,
		conns:         conns,
		http:          apiServer,
		lbBroadcaster: lbBroadcaster,
		notifyWorker:  notifyWorker,
		bgCancels:     make([]context.CancelFunc, 0, 2),
	}, nil
}

func newMailer(ctx context.Context, cfg config.Notify, logger zerolog.Logger) (notify.Mailer, error) {
	switch cfg.Transport {
	case "smtp":
		return notify.NewSMTPMailer(notify.SMTPConfig{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			FromEmail: cfg.FromEmail,
			FromName:  cfg.FromName,
		}, logger)
	case "ses":
		return notify.NewSESMailer(ctx, cfg.SESRegion, cfg.FromEmail, cfg.FromName, logger)
	case "log", "":
		return notify.NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.conns.close(a.logger)

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	a.runWorker(ctx, "leaderboard broadcaster", a.lbBroadcaster.Run)
	a.runWorker(ctx, "notification worker", a.notifyWorker.Run)
}

func (a *Application) runWorker(ctx context.Context, name string, run func(context.Context) error) {
	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go func() {
		if err := run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Str("worker", name).Msg("background worker stopped")
		}
	}()
}
