package domain

import "time"

// ListingCondition is the normalized condition bucket for a listing.
type ListingCondition string

const (
	ConditionNew     ListingCondition = "new"
	ConditionUsed    ListingCondition = "used"
	ConditionUnknown ListingCondition = "unknown"
)

// Listing is a single marketplace listing as returned by the eBay Browse API.
// Listings are immutable once parsed; malformed records are dropped during
// parsing rather than surfaced as partial values.
type Listing struct {
	ItemID       string           `json:"item_id"`
	Title        string           `json:"title"`
	Price        float64          `json:"price"`
	Currency     string           `json:"currency"`
	Condition    ListingCondition `json:"condition"`
	Brand        string           `json:"brand"`
	Size         string           `json:"size"`
	ImageURL     string           `json:"image_url"`
	ItemURL      string           `json:"item_url"`
	ShippingCost float64          `json:"shipping_cost"`
}

// SearchQuery describes one marketplace search request.
type SearchQuery struct {
	Keywords    string
	CategoryIDs []string
	MinPrice    float64
	MaxPrice    float64
	Sizes       []string
	SoldOnly    bool
	Limit       int
}

// ScanResult is the outcome of one deal scan for a user.
type ScanResult struct {
	ScanID     string        `json:"scan_id"`
	UserID     string        `json:"user_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	TotalItems int           `json:"total_items"`
	Deals      []Deal        `json:"deals"`
}
