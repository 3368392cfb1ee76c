// Package envfile persists the OAuth token pair into a dotenv file, the same
// file the rest of the configuration is read from. It is the default token
// store when no database is configured.
package envfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/valoriste/valoriste/internal/domain"
)

// Keys written into the dotenv file. EBAY_AUTH_TOKEN and EBAY_REFRESH_TOKEN
// match what the config loader reads back at startup.
const (
	keyAccessToken  = "EBAY_AUTH_TOKEN"
	keyRefreshToken = "EBAY_REFRESH_TOKEN"
	keyAccessExp    = "EBAY_TOKEN_EXPIRY"
	keyRefreshExp   = "EBAY_REFRESH_TOKEN_EXPIRY"
	keyUpdatedAt    = "EBAY_TOKEN_UPDATED_AT"
)

// TokenStore implements domain.TokenStore on top of a dotenv file. Writes
// rewrite the whole file but preserve unrelated keys.
type TokenStore struct {
	path string
	mu   sync.Mutex
}

// NewTokenStore creates a TokenStore for the given dotenv file path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Load reads the token pair from the dotenv file. A missing file or missing
// token keys yield domain.ErrNotFound.
func (s *TokenStore) Load(ctx context.Context) (domain.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := godotenv.Read(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.TokenPair{}, domain.ErrNotFound
		}
		return domain.TokenPair{}, fmt.Errorf("envfile: read %s: %w", s.path, err)
	}

	pair := domain.TokenPair{
		AccessToken:  env[keyAccessToken],
		RefreshToken: env[keyRefreshToken],
	}
	if pair.AccessToken == "" && pair.RefreshToken == "" {
		return domain.TokenPair{}, domain.ErrNotFound
	}

	pair.AccessTokenExpiry = parseTime(env[keyAccessExp])
	pair.RefreshTokenExpiry = parseTime(env[keyRefreshExp])
	pair.UpdatedAt = parseTime(env[keyUpdatedAt])
	return pair, nil
}

// Save writes the token pair into the dotenv file, keeping every unrelated
// key intact.
func (s *TokenStore) Save(ctx context.Context, pair domain.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := godotenv.Read(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("envfile: read %s: %w", s.path, err)
		}
		env = map[string]string{}
	}

	env[keyAccessToken] = pair.AccessToken
	env[keyRefreshToken] = pair.RefreshToken
	env[keyAccessExp] = formatTime(pair.AccessTokenExpiry)
	env[keyRefreshExp] = formatTime(pair.RefreshTokenExpiry)
	env[keyUpdatedAt] = formatTime(pair.UpdatedAt)

	if err := godotenv.Write(env, s.path); err != nil {
		return fmt.Errorf("envfile: write %s: %w", s.path, err)
	}
	return nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// Compile-time interface check.
var _ domain.TokenStore = (*TokenStore)(nil)
