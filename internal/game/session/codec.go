package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrEnvelopeExpired = errors.New("game token expired")
	ErrEnvelopeInvalid = errors.New("game token invalid")
	ErrPayloadCorrupt  = errors.New("game payload corrupt")
)

const (
	defaultTTL    = 2 * time.Minute
	defaultIssuer = "kanji-arena"
	keyInfo       = "kanji-arena game payload v1"
)

// Options configures a Codec.
type Options struct {
	EncryptionSecret string
	SigningSecret    string
	TTL              time.Duration // default: 2 minutes, one human answer
	Issuer           string
}

// Codec seals payloads into opaque tokens and opens them again.
type Codec struct {
	aead       cipher.AEAD
	signingKey []byte
	ttl        time.Duration
	issuer     string
	now        func() time.Time
}

type envelopeClaims struct {
	IV            string `json:"iv"`
	EncryptedData string `json:"encryptedData"`
	jwt.RegisteredClaims
}

// NewCodec derives the AES-256 key from the encryption secret with HKDF-SHA256.
func NewCodec(opts Options) (*Codec, error) {
	if opts.EncryptionSecret == "" || opts.SigningSecret == "" {
		return nil, errors.New("session codec requires encryption and signing secrets")
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.Issuer == "" {
		opts.Issuer = defaultIssuer
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(opts.EncryptionSecret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	return &Codec{
		aead:       aead,
		signingKey: []byte(opts.SigningSecret),
		ttl:        opts.TTL,
		issuer:     opts.Issuer,
		now:        time.Now,
	}, nil
}

// Seal encrypts the payload under a fresh IV and wraps it in a signed envelope.
func (c *Codec) Seal(p Payload) (string, error) {
	plain, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	iv := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}
	sealed := c.aead.Seal(nil, iv, plain, nil)

	now := c.now()
	claims := envelopeClaims{
		IV:            hex.EncodeToString(iv),
		EncryptedData: hex.EncodeToString(sealed),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.signingKey)
}

// Open verifies the envelope (signature, then expiry) before decrypting.
func (c *Codec) Open(raw string) (Payload, error) {
	claims := &envelopeClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return c.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Payload{}, ErrEnvelopeExpired
		}
		return Payload{}, fmt.Errorf("%w: %v", ErrEnvelopeInvalid, err)
	}

	iv, err := hex.DecodeString(claims.IV)
	if err != nil || len(iv) != c.aead.NonceSize() {
		return Payload{}, fmt.Errorf("%w: bad iv", ErrPayloadCorrupt)
	}
	sealed, err := hex.DecodeString(claims.EncryptedData)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: bad ciphertext encoding", ErrPayloadCorrupt)
	}
	plain, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: decrypt: %v", ErrPayloadCorrupt, err)
	}

	var p Payload
	if err := json.Unmarshal(plain, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: decode: %v", ErrPayloadCorrupt, err)
	}
	if err := p.Validate(); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrPayloadCorrupt, err)
	}
	return p, nil
}
