package ebay

import (
	"strconv"
	"strings"

	"github.com/valoriste/valoriste/internal/domain"
)

// convertedAmount is the Browse API money shape; values arrive as strings.
type convertedAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

func (a convertedAmount) amount() (float64, error) {
	return strconv.ParseFloat(a.Value, 64)
}

type shippingOption struct {
	ShippingCostType string          `json:"shippingCostType"`
	ShippingCost     convertedAmount `json:"shippingCost"`
}

type itemImage struct {
	ImageURL string `json:"imageUrl"`
}

// itemSummary is one record from the item_summary/search response.
type itemSummary struct {
	ItemID          string           `json:"itemId"`
	Title           string           `json:"title"`
	Price           convertedAmount  `json:"price"`
	Condition       string           `json:"condition"`
	Brand           string           `json:"brand"`
	ItemWebURL      string           `json:"itemWebUrl"`
	Image           itemImage        `json:"image"`
	ShippingOptions []shippingOption `json:"shippingOptions"`
}

type searchResponse struct {
	ItemSummaries []itemSummary `json:"itemSummaries"`
	Total         int           `json:"total"`
	Offset        int           `json:"offset"`
	Limit         int           `json:"limit"`
}

type apiError struct {
	Errors []struct {
		ErrorID   int    `json:"errorId"`
		Message   string `json:"message"`
		LongMsg   string `json:"longMessage"`
		Category  string `json:"category"`
	} `json:"errors"`
}

func (e apiError) message() string {
	if len(e.Errors) == 0 {
		return ""
	}
	if e.Errors[0].LongMsg != "" {
		return e.Errors[0].LongMsg
	}
	return e.Errors[0].Message
}

// toListing normalizes one item summary. ok is false for malformed records
// (missing identity or an unparsable/non-positive price); those are skipped
// rather than surfaced as partial listings.
func toListing(raw itemSummary) (domain.Listing, bool) {
	if raw.ItemID == "" || raw.Title == "" {
		return domain.Listing{}, false
	}
	price, err := raw.Price.amount()
	if err != nil || price <= 0 {
		return domain.Listing{}, false
	}

	l := domain.Listing{
		ItemID:    raw.ItemID,
		Title:     raw.Title,
		Price:     price,
		Currency:  raw.Price.Currency,
		Condition: normalizeCondition(raw.Condition),
		Brand:     raw.Brand,
		ImageURL:  raw.Image.ImageURL,
		ItemURL:   raw.ItemWebURL,
	}
	if len(raw.ShippingOptions) > 0 {
		if cost, err := raw.ShippingOptions[0].ShippingCost.amount(); err == nil {
			l.ShippingCost = cost
		}
	}
	return l, true
}

func normalizeCondition(c string) domain.ListingCondition {
	switch strings.ToUpper(strings.TrimSpace(c)) {
	case "NEW", "NEW WITH TAGS", "NEW WITH BOX", "NEW WITHOUT TAGS":
		return domain.ConditionNew
	case "":
		return domain.ConditionUnknown
	default:
		return domain.ConditionUsed
	}
}
