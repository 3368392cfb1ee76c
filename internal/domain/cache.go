package domain

import (
	"context"
	"time"
)

// SearchCache stores marketplace search results keyed by query fingerprint.
type SearchCache interface {
	Set(ctx context.Context, key string, listings []Listing, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]Listing, error)
}

// ValueCache stores market-value estimates keyed by normalized listing title.
type ValueCache interface {
	Set(ctx context.Context, key string, value float64, ttl time.Duration) error
	Get(ctx context.Context, key string) (float64, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking. Acquire returns ErrLockHeld when
// another party holds the lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub for live event delivery to the WebSocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
