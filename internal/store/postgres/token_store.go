package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/valoriste/valoriste/internal/domain"
)

// TokenStore implements domain.TokenStore using PostgreSQL. A single row
// holds the current token pair; Save overwrites it.
type TokenStore struct {
	pool *pgxpool.Pool
}

// NewTokenStore creates a new TokenStore backed by the given connection pool.
func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Load returns the persisted token pair, or domain.ErrNotFound when the
// application has never been authorized.
func (s *TokenStore) Load(ctx context.Context) (domain.TokenPair, error) {
	const query = `
		SELECT access_token, access_token_expiry, refresh_token,
		       refresh_token_expiry, updated_at
		FROM oauth_tokens WHERE id = 1`

	var pair domain.TokenPair
	var refreshExpiry *time.Time
	err := s.pool.QueryRow(ctx, query).Scan(
		&pair.AccessToken, &pair.AccessTokenExpiry,
		&pair.RefreshToken, &refreshExpiry, &pair.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TokenPair{}, domain.ErrNotFound
		}
		return domain.TokenPair{}, fmt.Errorf("postgres: load token: %w", err)
	}
	if refreshExpiry != nil {
		pair.RefreshTokenExpiry = *refreshExpiry
	}
	return pair, nil
}

// Save upserts the token pair.
func (s *TokenStore) Save(ctx context.Context, pair domain.TokenPair) error {
	const query = `
		INSERT INTO oauth_tokens (id, access_token, access_token_expiry,
		                          refresh_token, refresh_token_expiry, updated_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			access_token_expiry = EXCLUDED.access_token_expiry,
			refresh_token = EXCLUDED.refresh_token,
			refresh_token_expiry = EXCLUDED.refresh_token_expiry,
			updated_at = EXCLUDED.updated_at`

	var refreshExpiry *time.Time
	if !pair.RefreshTokenExpiry.IsZero() {
		refreshExpiry = &pair.RefreshTokenExpiry
	}
	updatedAt := pair.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, query,
		pair.AccessToken, pair.AccessTokenExpiry,
		pair.RefreshToken, refreshExpiry, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save token: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.TokenStore = (*TokenStore)(nil)
