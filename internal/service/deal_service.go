package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/valoriste/valoriste/internal/analyzer"
	"github.com/valoriste/valoriste/internal/domain"
)

// Searcher is the slice of the marketplace client the deal service needs.
type Searcher interface {
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.Listing, error)
}

// DealService runs the find-deals flow for a user: fan out one search per
// preferred brand, filter the listings against the user's preferences,
// estimate market value, score, and rank.
type DealService struct {
	searcher      Searcher
	estimator     domain.MarketValueEstimator
	scorer        *analyzer.Scorer
	users         *UserService
	deals         domain.DealStore // optional, persists scan history
	bus           domain.SignalBus // optional, publishes live scan events
	maxConcurrent int
	logger        *slog.Logger
	now           func() time.Time
}

// NewDealService wires the deal-finding flow. deals and bus may be nil.
func NewDealService(searcher Searcher, estimator domain.MarketValueEstimator, scorer *analyzer.Scorer, users *UserService, deals domain.DealStore, bus domain.SignalBus, maxConcurrent int, logger *slog.Logger) *DealService {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &DealService{
		searcher:      searcher,
		estimator:     estimator,
		scorer:        scorer,
		users:         users,
		deals:         deals,
		bus:           bus,
		maxConcurrent: maxConcurrent,
		logger:        logger,
		now:           time.Now,
	}
}

// FindDeals runs a full scan for the user and returns the ranked deals.
// filter thresholds that are zero fall back to the user's own preferences.
func (s *DealService) FindDeals(ctx context.Context, userID string, filter domain.DealFilter) (domain.ScanResult, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("service: find deals: %w", err)
	}

	started := s.now()
	listings, err := s.searchBrands(ctx, user)
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("service: find deals for %s: %w", userID, err)
	}

	candidates := s.applyPreferences(user, listings)
	deals := s.scoreAll(ctx, candidates)

	if filter.MinROI <= 0 {
		filter.MinROI = user.Preferences.MinROI
	}
	ranked := analyzer.FilterAndSort(deals, filter)

	result := domain.ScanResult{
		ScanID:     uuid.NewString(),
		UserID:     user.ID,
		StartedAt:  started,
		Duration:   s.now().Sub(started),
		TotalItems: len(listings),
		Deals:      ranked,
	}

	s.logger.Info("service: scan complete",
		"user", user.ID,
		"scan_id", result.ScanID,
		"items", result.TotalItems,
		"candidates", len(candidates),
		"deals", len(ranked),
		"duration", result.Duration)

	if s.deals != nil {
		if err := s.deals.InsertScan(ctx, result); err != nil {
			s.logger.Warn("service: persisting scan failed", "scan_id", result.ScanID, "error", err)
		}
	}
	s.publish(ctx, result)

	return result, nil
}

// searchBrands fans out one marketplace search per preferred brand, bounded
// by maxConcurrent. Brand-level failures are logged and skipped so one
// flaky query does not sink the scan, except auth failures, which abort.
func (s *DealService) searchBrands(ctx context.Context, user domain.User) ([]domain.Listing, error) {
	sizes := sizeVariants(user.Sizes)

	var mu sync.Mutex
	seen := make(map[string]bool)
	var all []domain.Listing

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for _, brand := range user.Preferences.Brands {
		brand := brand
		g.Go(func() error {
			q := domain.SearchQuery{
				Keywords:    brandQuery(brand, user.Gender),
				CategoryIDs: brandCategories(brand, user.Gender),
				MinPrice:    5,
				MaxPrice:    user.Preferences.MaxPrice,
				Sizes:       sizes,
				Limit:       50,
			}
			listings, err := s.searcher.Search(gctx, q)
			if err != nil {
				if errors.Is(err, domain.ErrAuthentication) || errors.Is(err, domain.ErrAuthorizationRequired) {
					return err
				}
				s.logger.Warn("service: brand search failed", "brand", brand, "error", err)
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for _, l := range listings {
				if seen[l.ItemID] {
					continue
				}
				seen[l.ItemID] = true
				if l.Brand == "" {
					l.Brand = brand
				}
				all = append(all, l)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

// applyPreferences drops listings outside the user's price ceiling or
// containing excluded keywords.
func (s *DealService) applyPreferences(user domain.User, listings []domain.Listing) []domain.Listing {
	out := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if l.Price <= 0 || (user.Preferences.MaxPrice > 0 && l.Price > user.Preferences.MaxPrice) {
			continue
		}
		if containsExcluded(l.Title, user.Preferences.ExcludedKeywords) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// scoreAll estimates and scores each candidate. Per-listing failures are
// skipped; a broken listing never sinks the scan.
func (s *DealService) scoreAll(ctx context.Context, listings []domain.Listing) []domain.Deal {
	deals := make([]domain.Deal, 0, len(listings))
	for _, l := range listings {
		value, err := s.estimator.Estimate(ctx, l)
		if err != nil {
			s.logger.Debug("service: estimate failed", "item", l.ItemID, "error", err)
			continue
		}
		deal, err := s.scorer.Score(l, value)
		if err != nil {
			s.logger.Debug("service: score rejected", "item", l.ItemID, "error", err)
			continue
		}
		deals = append(deals, deal)
	}
	return deals
}

func (s *DealService) publish(ctx context.Context, result domain.ScanResult) {
	if s.bus == nil || len(result.Deals) == 0 {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("service: encoding scan event failed", "error", err)
		return
	}
	if err := s.bus.Publish(ctx, "deals", payload); err != nil {
		s.logger.Warn("service: publishing scan event failed", "error", err)
	}
}

// brandQuery builds the search keywords for a brand: known alias variants
// OR-ed together, gender steering terms, and the standard junk exclusions.
func brandQuery(brand string, gender domain.Gender) string {
	var terms []string
	switch strings.ToLower(brand) {
	case "apc":
		terms = []string{"APC", "A.P.C", "A.P.C."}
	default:
		terms = []string{brand}
	}

	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	q := "(" + strings.Join(quoted, " OR ") + ")"

	if gender == domain.GenderMen {
		q += " mens -women -womens -female -girls"
	} else {
		q += " womens -mens -men -male -boys"
	}
	return q + " -fake -replica -wholesale -lot -bulk"
}

// brandCategories returns the eBay category IDs to scope a brand search.
// Lululemon has athletic-specific categories; everything else uses the
// general apparel trees.
func brandCategories(brand string, gender domain.Gender) []string {
	if strings.EqualFold(brand, "lululemon") && gender == domain.GenderMen {
		return []string{"15687", "57989", "185099"}
	}
	if gender == domain.GenderMen {
		return []string{"57990", "57989", "57988"}
	}
	return []string{"15724", "53159", "63861"}
}

// sizeVariants expands the user's sizes with the marketplace's common
// synonyms: waist sizes gain a W prefix, letter sizes gain their full word.
func sizeVariants(sizes domain.Sizes) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, size := range sizes.All() {
		add(size)
		switch {
		case isDigits(size):
			add("W" + size)
		case size == "S":
			add("Small")
		case size == "M":
			add("Medium")
		case size == "L":
			add("Large")
		}
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func containsExcluded(title string, excluded []string) bool {
	lower := strings.ToLower(title)
	for _, word := range excluded {
		if strings.Contains(lower, strings.ToLower(word)) {
			return true
		}
	}
	return false
}
