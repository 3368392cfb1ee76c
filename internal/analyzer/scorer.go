// Package analyzer turns raw listings into scored deals: it estimates what a
// listing would resell for, deducts marketplace fees, and filters the results
// by profitability thresholds.
package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/valoriste/valoriste/internal/domain"
)

// FeeSchedule models the marketplace's cut of a resale: a percentage of the
// sale price plus a fixed per-order fee, plus outbound shipping.
type FeeSchedule struct {
	// Percent is the final-value fee percentage, e.g. 12.9.
	Percent float64
	// Fixed is the per-order fee in dollars, e.g. 0.30.
	Fixed float64
	// DefaultShipping is assumed outbound shipping when the listing carries
	// no shipping cost of its own.
	DefaultShipping float64
}

// Fees returns the total cost of reselling at the given market value, with
// the listing's own shipping cost falling back to the schedule default.
func (f FeeSchedule) Fees(marketValue, shippingCost float64) float64 {
	shipping := shippingCost
	if shipping <= 0 {
		shipping = f.DefaultShipping
	}
	return marketValue*(f.Percent/100) + f.Fixed + shipping
}

// Scorer scores listings against estimated market value.
type Scorer struct {
	fees FeeSchedule
	now  func() time.Time
}

// NewScorer creates a Scorer with the given fee schedule.
func NewScorer(fees FeeSchedule) *Scorer {
	return &Scorer{fees: fees, now: time.Now}
}

// Score computes profitability for a single listing given its estimated
// market value. Listings with a non-positive price cannot produce a
// meaningful ROI and are rejected with domain.ErrZeroPrice.
func (s *Scorer) Score(listing domain.Listing, marketValue float64) (domain.Deal, error) {
	if listing.Price <= 0 {
		return domain.Deal{}, fmt.Errorf("analyzer: listing %s: %w", listing.ItemID, domain.ErrZeroPrice)
	}

	fees := s.fees.Fees(marketValue, listing.ShippingCost)
	profit := marketValue - listing.Price - fees
	roi := profit / listing.Price * 100

	return domain.Deal{
		Listing:     listing,
		MarketValue: marketValue,
		Fees:        fees,
		Profit:      profit,
		ROI:         roi,
		ScoredAt:    s.now(),
	}, nil
}

// FilterAndSort applies the filter thresholds and orders the surviving deals.
// The sort is stable, so deals that compare equal keep their input order. The
// input slice is never modified.
func FilterAndSort(deals []domain.Deal, filter domain.DealFilter) []domain.Deal {
	out := make([]domain.Deal, 0, len(deals))
	for _, d := range deals {
		if d.ROI < filter.MinROI {
			continue
		}
		if d.Profit < filter.MinProfit {
			continue
		}
		if !brandMatches(d.Listing.Brand, filter.Brand) {
			continue
		}
		out = append(out, d)
	}

	switch filter.Sort {
	case domain.SortByProfit:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Profit > out[j].Profit })
	case domain.SortByPrice:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Listing.Price < out[j].Listing.Price })
	default: // domain.SortByROI
		sort.SliceStable(out, func(i, j int) bool { return out[i].ROI > out[j].ROI })
	}
	return out
}

// brandMatches treats the filter brand "all" (or empty) as a wildcard and
// otherwise compares case-insensitively.
func brandMatches(brand, want string) bool {
	if want == "" || strings.EqualFold(want, "all") {
		return true
	}
	return strings.EqualFold(brand, want)
}
