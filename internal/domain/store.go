package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// TokenStore persists the OAuth token pair across restarts. Implementations
// hold a single pair per credential profile.
type TokenStore interface {
	Load(ctx context.Context) (TokenPair, error)
	Save(ctx context.Context, pair TokenPair) error
}

// UserStore persists shopper profiles.
type UserStore interface {
	Get(ctx context.Context, id string) (User, error)
	List(ctx context.Context) ([]User, error)
	Upsert(ctx context.Context, user User) error
}

// DealStore persists scan history.
type DealStore interface {
	InsertScan(ctx context.Context, result ScanResult) error
	ListRecent(ctx context.Context, userID string, opts ListOpts) ([]Deal, error)
	LastScanTime(ctx context.Context, userID string) (time.Time, error)
}

// MarketValueEstimator produces the estimated resale value for a listing.
// The deal scorer treats this as an external input.
type MarketValueEstimator interface {
	Estimate(ctx context.Context, listing Listing) (float64, error)
}
