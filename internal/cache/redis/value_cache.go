package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/valoriste/valoriste/internal/domain"
)

// ValueCache implements domain.ValueCache with market-value estimates stored
// as stringified floats under TTL'd keys.
type ValueCache struct {
	rdb *redis.Client
}

// NewValueCache creates a ValueCache backed by the given Client.
func NewValueCache(c *Client) *ValueCache {
	return &ValueCache{rdb: c.Underlying()}
}

// Set stores a market-value estimate with the given TTL.
func (vc *ValueCache) Set(ctx context.Context, key string, value float64, ttl time.Duration) error {
	s := strconv.FormatFloat(value, 'f', -1, 64)
	if err := vc.rdb.Set(ctx, key, s, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set value %s: %w", key, err)
	}
	return nil
}

// Get retrieves a cached estimate. It returns domain.ErrNotFound when the
// key does not exist or has expired.
func (vc *ValueCache) Get(ctx context.Context, key string) (float64, error) {
	s, err := vc.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("redis: get value %s: %w", key, err)
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: parse value %s: %w", key, err)
	}
	return value, nil
}

// Compile-time interface check.
var _ domain.ValueCache = (*ValueCache)(nil)
