package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"kanji-arena"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres   Postgres
	Redis      Redis
	Security   Security
	Game       Game
	Vocabulary Vocabulary
	Notify     Notify
	CORS       CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the pgx connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode, p.MaxConns)
}

// Redis holds cache + pub/sub configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for signing and encryption.
type Security struct {
	JWTSecret       string `env:"JWT_SECRET,notEmpty"`
	JWTIssuer       string `env:"JWT_ISSUER" envDefault:""`
	GameTokenSecret string `env:"GAME_TOKEN_SECRET,notEmpty"`
	GameAESKey      string `env:"GAME_AES_KEY,notEmpty"`
}

// Game groups gameplay constants.
type Game struct {
	WinningThreshold int           `env:"WINNING_THRESHOLD" envDefault:"20"`
	Oversampling     int           `env:"OVERSAMPLING_FACTOR" envDefault:"2"`
	ChoicesPerCard   int           `env:"CHOICES_PER_CARD" envDefault:"3"`
	TokenTTL         time.Duration `env:"GAME_TOKEN_TTL" envDefault:"2m"`
	RankingLimit     int           `env:"RANKING_LIMIT" envDefault:"100"`
	MinGrade         int           `env:"MIN_GRADE" envDefault:"1"`
	MaxGrade         int           `env:"MAX_GRADE" envDefault:"5"`
	AnonymousLabel   string        `env:"ANONYMOUS_LABEL" envDefault:"anonymous"`
}

// Vocabulary configures meaning resolution and the pool cache.
type Vocabulary struct {
	NativeLanguages    []string      `env:"NATIVE_LANGUAGES" envSeparator:"," envDefault:"en,fr"`
	FallbackLanguage   string        `env:"FALLBACK_LANGUAGE" envDefault:"en"`
	MeaningPlaceholder string        `env:"MEANING_PLACEHOLDER" envDefault:"?"`
	CacheTTL           time.Duration `env:"VOCAB_CACHE_TTL" envDefault:"10m"`
}

// Notify configures out-of-ranking emails.
type Notify struct {
	Transport     string        `env:"NOTIFY_TRANSPORT" envDefault:"log"`
	RankThreshold int           `env:"ALERT_RANK_THRESHOLD" envDefault:"100"`
	QueueSize     int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"64"`
	SendTimeout   time.Duration `env:"NOTIFY_SEND_TIMEOUT" envDefault:"10s"`
	FromEmail     string        `env:"NOTIFY_FROM_EMAIL" envDefault:""`
	FromName      string        `env:"NOTIFY_FROM_NAME" envDefault:"Kanji Arena"`
	SESRegion     string        `env:"SES_REGION" envDefault:"eu-west-3"`

	SMTP SMTP
}

// SMTP holds email server configuration.
type SMTP struct {
	Host     string `env:"SMTP_HOST" envDefault:""`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME" envDefault:""`
	Password string `env:"SMTP_PASSWORD" envDefault:""`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *App) validate() error {
	if c.Game.MinGrade < 1 || c.Game.MaxGrade < c.Game.MinGrade {
		return fmt.Errorf("invalid grade range [%d,%d]", c.Game.MinGrade, c.Game.MaxGrade)
	}
	if c.Game.WinningThreshold < 1 {
		return fmt.Errorf("WINNING_THRESHOLD must be positive")
	}
	switch c.Notify.Transport {
	case "log":
	case "smtp":
		if c.Notify.SMTP.Host == "" || c.Notify.FromEmail == "" {
			return fmt.Errorf("smtp transport requires SMTP_HOST and NOTIFY_FROM_EMAIL")
		}
	case "ses":
		if c.Notify.FromEmail == "" {
			return fmt.Errorf("ses transport requires NOTIFY_FROM_EMAIL")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_TRANSPORT %q", c.Notify.Transport)
	}
	return nil
}
