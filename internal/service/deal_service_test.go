package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valoriste/valoriste/internal/analyzer"
	"github.com/valoriste/valoriste/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSearcher returns canned listings for every brand query and records the
// queries it saw.
type fakeSearcher struct {
	mu       sync.Mutex
	listings []domain.Listing
	queries  []domain.SearchQuery
	err      error
}

func (f *fakeSearcher) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Listing, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.listings, nil
}

// flatEstimator returns a fixed market value for everything.
type flatEstimator struct{ value float64 }

func (e flatEstimator) Estimate(ctx context.Context, l domain.Listing) (float64, error) {
	return e.value, nil
}

func newTestDealService(searcher Searcher, estimator domain.MarketValueEstimator) *DealService {
	scorer := analyzer.NewScorer(analyzer.FeeSchedule{Percent: 0, Fixed: 10})
	return NewDealService(searcher, estimator, scorer, NewUserService(nil), nil, nil, 2, discardLogger())
}

func TestFindDealsScoresAndRanks(t *testing.T) {
	searcher := &fakeSearcher{listings: []domain.Listing{
		{ItemID: "cheap", Title: "APC petit standard jeans", Price: 50, Brand: "APC"},
	}}
	// Market value 120 with fixed fees 10: profit 60, ROI 120%.
	s := newTestDealService(searcher, flatEstimator{value: 120})

	result, err := s.FindDeals(context.Background(), "thai", domain.DealFilter{})
	require.NoError(t, err)

	assert.Equal(t, "thai", result.UserID)
	assert.NotEmpty(t, result.ScanID)
	require.Len(t, result.Deals, 1)
	assert.InDelta(t, 60.0, result.Deals[0].Profit, 1e-9)
	assert.InDelta(t, 120.0, result.Deals[0].ROI, 1e-9)
}

func TestFindDealsSearchesEveryBrand(t *testing.T) {
	searcher := &fakeSearcher{}
	s := newTestDealService(searcher, flatEstimator{value: 100})

	_, err := s.FindDeals(context.Background(), "thai", domain.DealFilter{})
	require.NoError(t, err)

	// Thai has four preferred brands; one search each.
	assert.Len(t, searcher.queries, 4)
	for _, q := range searcher.queries {
		assert.Contains(t, q.Keywords, "-fake")
		assert.Contains(t, q.Keywords, "mens")
		assert.NotEmpty(t, q.CategoryIDs)
	}
}

func TestFindDealsAppliesUserMinROI(t *testing.T) {
	searcher := &fakeSearcher{listings: []domain.Listing{
		{ItemID: "thin-margin", Title: "theory blazer", Price: 100, Brand: "Theory"},
	}}
	// Market value 120, fees 10: profit 10, ROI 10%, below Thai's 30% floor.
	s := newTestDealService(searcher, flatEstimator{value: 120})

	result, err := s.FindDeals(context.Background(), "thai", domain.DealFilter{})
	require.NoError(t, err)
	assert.Empty(t, result.Deals)

	// An explicit lower threshold admits it.
	result, err = s.FindDeals(context.Background(), "thai", domain.DealFilter{MinROI: 5})
	require.NoError(t, err)
	assert.Len(t, result.Deals, 1)
}

func TestFindDealsFiltersExcludedKeywordsAndPrice(t *testing.T) {
	searcher := &fakeSearcher{listings: []domain.Listing{
		{ItemID: "ok", Title: "APC jeans", Price: 50},
		{ItemID: "fake", Title: "APC jeans replica", Price: 50},
		{ItemID: "pricey", Title: "APC coat", Price: 999},
	}}
	s := newTestDealService(searcher, flatEstimator{value: 500})

	result, err := s.FindDeals(context.Background(), "thai", domain.DealFilter{MinROI: 1})
	require.NoError(t, err)
	require.Len(t, result.Deals, 1)
	assert.Equal(t, "ok", result.Deals[0].Listing.ItemID)
	// TotalItems counts everything the searches returned, before filtering.
	assert.Equal(t, 3, result.TotalItems)
}

func TestFindDealsDeduplicatesAcrossBrands(t *testing.T) {
	searcher := &fakeSearcher{listings: []domain.Listing{
		{ItemID: "same-item", Title: "APC jeans", Price: 50},
	}}
	s := newTestDealService(searcher, flatEstimator{value: 200})

	result, err := s.FindDeals(context.Background(), "thai", domain.DealFilter{MinROI: 1})
	require.NoError(t, err)
	// Four brand searches all returned the same listing; it appears once.
	assert.Len(t, result.Deals, 1)
}

func TestFindDealsAuthFailureAborts(t *testing.T) {
	searcher := &fakeSearcher{err: domain.ErrAuthorizationRequired}
	s := newTestDealService(searcher, flatEstimator{value: 100})

	_, err := s.FindDeals(context.Background(), "thai", domain.DealFilter{})
	require.ErrorIs(t, err, domain.ErrAuthorizationRequired)
}

func TestFindDealsUnknownUser(t *testing.T) {
	s := newTestDealService(&fakeSearcher{}, flatEstimator{value: 100})
	_, err := s.FindDeals(context.Background(), "nobody", domain.DealFilter{})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindDealsPersistsScan(t *testing.T) {
	searcher := &fakeSearcher{listings: []domain.Listing{
		{ItemID: "ok", Title: "APC jeans", Price: 50},
	}}
	store := &memDealStore{}
	scorer := analyzer.NewScorer(analyzer.FeeSchedule{Percent: 0, Fixed: 10})
	s := NewDealService(searcher, flatEstimator{value: 200}, scorer, NewUserService(nil), store, nil, 2, discardLogger())

	result, err := s.FindDeals(context.Background(), "thai", domain.DealFilter{MinROI: 1})
	require.NoError(t, err)
	require.Len(t, store.scans, 1)
	assert.Equal(t, result.ScanID, store.scans[0].ScanID)
}

func TestBrandQueryVariants(t *testing.T) {
	q := brandQuery("APC", domain.GenderMen)
	assert.Contains(t, q, `"A.P.C."`)
	assert.Contains(t, q, "mens")

	q = brandQuery("Theory", domain.GenderWomen)
	assert.Contains(t, q, `"Theory"`)
	assert.Contains(t, q, "womens")
}

func TestSizeVariants(t *testing.T) {
	got := sizeVariants(domain.Sizes{
		Tops:         []string{"S"},
		BottomsWaist: []string{"33"},
	})
	assert.Contains(t, got, "S")
	assert.Contains(t, got, "Small")
	assert.Contains(t, got, "33")
	assert.Contains(t, got, "W33")
}

type memDealStore struct {
	mu    sync.Mutex
	scans []domain.ScanResult
}

func (s *memDealStore) InsertScan(ctx context.Context, result domain.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans = append(s.scans, result)
	return nil
}

func (s *memDealStore) ListRecent(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Deal
	for _, scan := range s.scans {
		if scan.UserID == userID {
			out = append(out, scan.Deals...)
		}
	}
	return out, nil
}

func (s *memDealStore) LastScanTime(ctx context.Context, userID string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.scans) - 1; i >= 0; i-- {
		if s.scans[i].UserID == userID {
			return s.scans[i].StartedAt, nil
		}
	}
	return time.Time{}, domain.ErrNotFound
}
