// Package imagekit issues upload credentials for the ImageKit media CDN and
// builds delivery URLs for stored preview images.
package imagekit

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ExpireWindow is how long an issued credential stays valid
const ExpireWindow = 2400 * time.Second

const tokenPrefix = "imagekit:token:"

// maxTokenAttempts bounds regeneration when the registry reports a reuse
const maxTokenAttempts = 5

// ErrNotConfigured is returned when no private key is set
var ErrNotConfigured = errors.New("ImageKit private key not configured")

// Credential is what a browser needs to upload one file directly to ImageKit
type Credential struct {
	Token     string `json:"token"`
	Expire    int64  `json:"expire"`
	Signature string `json:"signature"`
}

// Signer creates upload credentials. It is safe for concurrent use.
type Signer struct {
	privateKey string
	now        func() time.Time
	newToken   func() string
	registry   *redis.Client
}

// Option configures a Signer
type Option func(*Signer)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// WithTokenSource overrides token generation
func WithTokenSource(fn func() string) Option {
	return func(s *Signer) { s.newToken = fn }
}

// WithRegistry records issued tokens in Redis so a token is never handed
// out twice within its expiry window
func WithRegistry(client *redis.Client) Option {
	return func(s *Signer) { s.registry = client }
}

// NewSigner creates a signer for privateKey. An empty key yields a signer
// whose Sign always fails with ErrNotConfigured.
func NewSigner(privateKey string, opts ...Option) *Signer {
	s := &Signer{
		privateKey: privateKey,
		now:        time.Now,
		newToken:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether a private key is set
func (s *Signer) Configured() bool {
	return s.privateKey != ""
}

// Sign issues a fresh credential
func (s *Signer) Sign(ctx context.Context) (Credential, error) {
	if !s.Configured() {
		return Credential{}, ErrNotConfigured
	}

	expire := s.now().Add(ExpireWindow).Unix()
	token, err := s.claimToken(ctx)
	if err != nil {
		return Credential{}, err
	}

	return Credential{
		Token:     token,
		Expire:    expire,
		Signature: Signature(s.privateKey, token, expire),
	}, nil
}

func (s *Signer) claimToken(ctx context.Context) (string, error) {
	if s.registry == nil {
		return s.newToken(), nil
	}
	for i := 0; i < maxTokenAttempts; i++ {
		token := s.newToken()
		ok, err := s.registry.SetNX(ctx, tokenPrefix+token, 1, ExpireWindow).Result()
		if err != nil {
			return "", fmt.Errorf("register upload token: %w", err)
		}
		if ok {
			return token, nil
		}
	}
	return "", fmt.Errorf("register upload token: no unused token after %d attempts", maxTokenAttempts)
}

// Signature is the lowercase hex HMAC-SHA1 of token followed by the decimal
// expire timestamp, keyed by privateKey
func Signature(privateKey, token string, expire int64) string {
	mac := hmac.New(sha1.New, []byte(privateKey))
	mac.Write([]byte(token + strconv.FormatInt(expire, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
