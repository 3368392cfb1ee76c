package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/valoriste/valoriste/internal/domain"
)

// minCompsSamples is the minimum number of sold comps required before the
// median is trusted over the markup fallback.
const minCompsSamples = 2

// SoldSearcher is the slice of the marketplace client the comps estimator
// needs.
type SoldSearcher interface {
	SearchSold(ctx context.Context, keywords string, limit int) ([]domain.Listing, error)
}

// MarkupEstimator guesses market value by applying a condition-dependent
// markup to the asking price. It never fails and serves as the fallback when
// sold comps are unavailable.
type MarkupEstimator struct {
	NewMultiplier  float64
	UsedMultiplier float64
}

// NewMarkupEstimator creates the default markup estimator: new items resell
// around 1.5x asking, used items around 1.3x.
func NewMarkupEstimator() *MarkupEstimator {
	return &MarkupEstimator{NewMultiplier: 1.5, UsedMultiplier: 1.3}
}

var _ domain.MarketValueEstimator = (*MarkupEstimator)(nil)

// Estimate implements domain.MarketValueEstimator.
func (e *MarkupEstimator) Estimate(ctx context.Context, listing domain.Listing) (float64, error) {
	if listing.Condition == domain.ConditionNew {
		return listing.Price * e.NewMultiplier, nil
	}
	return listing.Price * e.UsedMultiplier, nil
}

// CompsEstimator estimates market value from the median price of recently
// sold comparable listings, caching results per normalized title. When fewer
// than minCompsSamples comps exist, it falls back to the markup estimator.
type CompsEstimator struct {
	searcher SoldSearcher
	fallback domain.MarketValueEstimator
	cache    domain.ValueCache // optional
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewCompsEstimator creates a comps-based estimator. cache may be nil.
func NewCompsEstimator(searcher SoldSearcher, fallback domain.MarketValueEstimator, cache domain.ValueCache, cacheTTL time.Duration, logger *slog.Logger) *CompsEstimator {
	return &CompsEstimator{
		searcher: searcher,
		fallback: fallback,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

var _ domain.MarketValueEstimator = (*CompsEstimator)(nil)

// Estimate implements domain.MarketValueEstimator.
func (e *CompsEstimator) Estimate(ctx context.Context, listing domain.Listing) (float64, error) {
	key := compsKey(listing)

	if e.cache != nil {
		if v, err := e.cache.Get(ctx, key); err == nil {
			return v, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			e.logger.Warn("analyzer: value cache read failed", "error", err)
		}
	}

	value, err := e.fromComps(ctx, listing)
	if err != nil {
		e.logger.Debug("analyzer: comps lookup failed, using markup fallback",
			"title", listing.Title, "error", err)
		value, err = e.fallback.Estimate(ctx, listing)
		if err != nil {
			return 0, fmt.Errorf("analyzer: fallback estimate: %w", err)
		}
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, key, value, e.cacheTTL); err != nil {
			e.logger.Warn("analyzer: value cache write failed", "error", err)
		}
	}
	return value, nil
}

func (e *CompsEstimator) fromComps(ctx context.Context, listing domain.Listing) (float64, error) {
	comps, err := e.searcher.SearchSold(ctx, compsQuery(listing), 50)
	if err != nil {
		return 0, fmt.Errorf("search sold comps: %w", err)
	}

	prices := make([]float64, 0, len(comps))
	for _, c := range comps {
		if c.Price > 0 {
			prices = append(prices, c.Price)
		}
	}
	if len(prices) < minCompsSamples {
		return 0, fmt.Errorf("only %d sold comps for %q", len(prices), listing.Title)
	}
	return median(prices), nil
}

// compsQuery strips listing-specific noise so comps match the product, not
// the exact listing.
func compsQuery(listing domain.Listing) string {
	if listing.Brand != "" && !strings.Contains(strings.ToLower(listing.Title), strings.ToLower(listing.Brand)) {
		return listing.Brand + " " + listing.Title
	}
	return listing.Title
}

func compsKey(listing domain.Listing) string {
	return "value:" + strings.ToLower(strings.Join(strings.Fields(compsQuery(listing)), " "))
}

// median returns the middle value; for even counts it averages the two middle
// values. The input is copied before sorting.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
