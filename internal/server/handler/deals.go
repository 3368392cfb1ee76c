package handler

import (
	"errors"
	"net/http"

	"github.com/valoriste/valoriste/internal/analyzer"
	"github.com/valoriste/valoriste/internal/domain"
	"github.com/valoriste/valoriste/internal/service"
)

// DealsHandler serves deal queries, either from scan history or by running a
// fresh scan on demand.
type DealsHandler struct {
	deals *service.DealService
	store domain.DealStore
}

func NewDealsHandler(deals *service.DealService, store domain.DealStore) *DealsHandler {
	return &DealsHandler{deals: deals, store: store}
}

// ForUser returns deals for a user. By default it serves the most recent
// persisted scan; ?refresh=true runs a new scan against the marketplace.
func (h *DealsHandler) ForUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	q := r.URL.Query()

	filter := domain.DealFilter{
		MinROI:    parseFloat(r, "min_roi", 0),
		MinProfit: parseFloat(r, "min_profit", 0),
		Brand:     q.Get("brand"),
		Sort:      domain.SortKey(q.Get("sort")),
	}

	if q.Get("refresh") != "true" && h.store != nil {
		deals, err := h.store.ListRecent(r.Context(), userID, parseListOpts(r))
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "reading deal history")
			return
		}
		if len(deals) > 0 {
			deals = analyzer.FilterAndSort(deals, filter)
			writeJSON(w, http.StatusOK, map[string]any{
				"user_id": userID,
				"deals":   deals,
				"count":   len(deals),
				"source":  "history",
			})
			return
		}
		// No history yet, fall through to a fresh scan.
	}

	result, err := h.deals.FindDeals(r.Context(), userID, filter)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, domain.ErrAuthorizationRequired):
			writeError(w, http.StatusUnauthorized, "authorization required, visit /api/auth/url")
		case errors.Is(err, domain.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "marketplace rate limit reached")
		default:
			writeError(w, http.StatusBadGateway, "deal scan failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     result.UserID,
		"scan_id":     result.ScanID,
		"deals":       result.Deals,
		"count":       len(result.Deals),
		"total_items": result.TotalItems,
		"duration_ms": result.Duration.Milliseconds(),
		"source":      "scan",
	})
}
