package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/valoriste/valoriste/internal/domain"
)

// SearchCache implements domain.SearchCache with JSON-encoded listing slices
// stored under TTL'd string keys. Keys already carry the "search:" prefix
// from the query fingerprint.
type SearchCache struct {
	rdb *redis.Client
}

// NewSearchCache creates a SearchCache backed by the given Client.
func NewSearchCache(c *Client) *SearchCache {
	return &SearchCache{rdb: c.Underlying()}
}

// Set stores listings for a query fingerprint with the given TTL.
func (sc *SearchCache) Set(ctx context.Context, key string, listings []domain.Listing, ttl time.Duration) error {
	data, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("redis: encode listings for %s: %w", key, err)
	}
	if err := sc.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set search %s: %w", key, err)
	}
	return nil
}

// Get retrieves cached listings. It returns domain.ErrNotFound when the key
// does not exist or has expired.
func (sc *SearchCache) Get(ctx context.Context, key string) ([]domain.Listing, error) {
	data, err := sc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get search %s: %w", key, err)
	}

	var listings []domain.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("redis: decode listings for %s: %w", key, err)
	}
	return listings, nil
}

// Compile-time interface check.
var _ domain.SearchCache = (*SearchCache)(nil)
