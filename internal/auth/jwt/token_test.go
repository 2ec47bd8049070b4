package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// issue signs claims the way the account service does.
func issue(t *testing.T, secret, issuer string, userID uuid.UUID, expiresIn time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := Claims{
		UserID:      userID,
		DisplayName: "hana",
		Locale:      "fr-FR",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestValidateAccessToken(t *testing.T) {
	m := NewManager(TokenConfig{AccessSecret: []byte("secret"), Issuer: "kanji-arena"})
	userID := uuid.New()

	claims, err := m.ValidateAccessToken(issue(t, "secret", "kanji-arena", userID, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "hana", claims.DisplayName)
	assert.Equal(t, "fr-FR", claims.Locale)
}

func TestValidateAccessTokenRejects(t *testing.T) {
	m := NewManager(TokenConfig{AccessSecret: []byte("secret"), Issuer: "kanji-arena"})
	userID := uuid.New()

	cases := map[string]struct {
		token string
		want  error
	}{
		"other secret": {issue(t, "nope", "kanji-arena", userID, time.Hour), ErrInvalidToken},
		"other issuer": {issue(t, "secret", "elsewhere", userID, time.Hour), ErrInvalidToken},
		"expired":      {issue(t, "secret", "kanji-arena", userID, -time.Second), ErrExpiredToken},
		"nil user":     {issue(t, "secret", "kanji-arena", uuid.Nil, time.Hour), ErrInvalidToken},
		"garbage":      {"a.b.c", ErrInvalidToken},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.ValidateAccessToken(tc.token)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestValidateAccessTokenWithoutIssuer(t *testing.T) {
	m := NewManager(TokenConfig{AccessSecret: []byte("secret")})

	_, err := m.ValidateAccessToken(issue(t, "secret", "anyone", uuid.New(), time.Hour))
	assert.NoError(t, err)
}
