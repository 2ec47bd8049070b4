package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PG_HOST", "localhost")
	t.Setenv("PG_USER", "kanji")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("PG_DATABASE", "kanji")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("GAME_TOKEN_SECRET", "sign")
	t.Setenv("GAME_AES_KEY", "enc")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Game.WinningThreshold)
	assert.Equal(t, 2, cfg.Game.Oversampling)
	assert.Equal(t, 3, cfg.Game.ChoicesPerCard)
	assert.Equal(t, 2*time.Minute, cfg.Game.TokenTTL)
	assert.Equal(t, []string{"en", "fr"}, cfg.Vocabulary.NativeLanguages)
	assert.Equal(t, "log", cfg.Notify.Transport)
	assert.Equal(t, 100, cfg.Notify.RankThreshold)
	assert.Contains(t, cfg.Postgres.DSN(), "dbname=kanji")
}

func TestLoadRequiresSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("GAME_AES_KEY", "")

	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestLoadValidatesTransport(t *testing.T) {
	setRequired(t)
	t.Setenv("NOTIFY_TRANSPORT", "smtp")

	_, err := Load(context.Background())
	assert.ErrorContains(t, err, "SMTP_HOST")

	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("NOTIFY_FROM_EMAIL", "noreply@example.com")
	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 587, cfg.Notify.SMTP.Port)

	t.Setenv("NOTIFY_TRANSPORT", "pigeon")
	_, err = Load(context.Background())
	assert.Error(t, err)
}
