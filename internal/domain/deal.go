package domain

import "time"

// Deal is a Listing enriched with market-value and profitability figures.
// Deals are immutable; listings that fail the scoring thresholds are
// discarded, never mutated in place.
type Deal struct {
	Listing     Listing   `json:"listing"`
	MarketValue float64   `json:"market_value"`
	Fees        float64   `json:"fees"`
	Profit      float64   `json:"profit"`
	ROI         float64   `json:"roi"`
	ScoredAt    time.Time `json:"scored_at"`
}

// SortKey selects the ordering for filtered deal lists.
type SortKey string

const (
	SortByROI    SortKey = "roi"    // descending
	SortByProfit SortKey = "profit" // descending
	SortByPrice  SortKey = "price"  // ascending
)

// DealFilter holds the thresholds applied after scoring. Brand "all" (or
// empty) matches every brand.
type DealFilter struct {
	MinROI    float64
	MinProfit float64
	Brand     string
	Sort      SortKey
}
