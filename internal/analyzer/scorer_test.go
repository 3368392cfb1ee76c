package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valoriste/valoriste/internal/domain"
)

func defaultFees() FeeSchedule {
	return FeeSchedule{Percent: 12.9, Fixed: 0.30, DefaultShipping: 7.99}
}

func TestScoreArithmetic(t *testing.T) {
	// Fixed fees so the numbers stay readable: 120 market value minus 50
	// price minus 10 fees = 60 profit, 120% ROI.
	s := NewScorer(FeeSchedule{Percent: 0, Fixed: 10, DefaultShipping: 0})
	deal, err := s.Score(domain.Listing{ItemID: "i1", Price: 50}, 120)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, deal.Fees, 1e-9)
	assert.InDelta(t, 60.0, deal.Profit, 1e-9)
	assert.InDelta(t, 120.0, deal.ROI, 1e-9)
}

func TestScoreFeeSchedule(t *testing.T) {
	s := NewScorer(defaultFees())
	deal, err := s.Score(domain.Listing{ItemID: "i1", Price: 50}, 120)
	require.NoError(t, err)
	// 12.9% of 120 + 0.30 + default shipping 7.99.
	assert.InDelta(t, 120*0.129+0.30+7.99, deal.Fees, 1e-9)
	assert.InDelta(t, 120-50-deal.Fees, deal.Profit, 1e-9)
}

func TestScoreUsesListingShipping(t *testing.T) {
	s := NewScorer(defaultFees())
	deal, err := s.Score(domain.Listing{ItemID: "i1", Price: 50, ShippingCost: 4.50}, 120)
	require.NoError(t, err)
	assert.InDelta(t, 120*0.129+0.30+4.50, deal.Fees, 1e-9)
}

func TestScoreZeroPrice(t *testing.T) {
	s := NewScorer(defaultFees())
	_, err := s.Score(domain.Listing{ItemID: "free"}, 120)
	require.ErrorIs(t, err, domain.ErrZeroPrice)

	_, err = s.Score(domain.Listing{ItemID: "neg", Price: -5}, 120)
	require.ErrorIs(t, err, domain.ErrZeroPrice)
}

func mkDeal(id string, price, profit, roi float64, brand string) domain.Deal {
	return domain.Deal{
		Listing: domain.Listing{ItemID: id, Price: price, Brand: brand},
		Profit:  profit,
		ROI:     roi,
	}
}

func TestFilterMinROI(t *testing.T) {
	deals := []domain.Deal{
		mkDeal("a", 10, 1, 10, "apc"),
		mkDeal("b", 10, 5, 50, "apc"),
		mkDeal("c", 10, 3, 30, "apc"),
	}
	got := FilterAndSort(deals, domain.DealFilter{MinROI: 20})
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Listing.ItemID)
	assert.Equal(t, "c", got[1].Listing.ItemID)
}

func TestFilterMinProfit(t *testing.T) {
	deals := []domain.Deal{
		mkDeal("a", 10, 15, 150, "apc"),
		mkDeal("b", 10, 2, 20, "apc"),
	}
	got := FilterAndSort(deals, domain.DealFilter{MinProfit: 10})
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Listing.ItemID)
}

func TestFilterBrandAllMatchesEverything(t *testing.T) {
	deals := []domain.Deal{
		mkDeal("a", 10, 1, 10, "APC"),
		mkDeal("b", 10, 1, 10, "Theory"),
	}
	assert.Len(t, FilterAndSort(deals, domain.DealFilter{Brand: "all"}), 2)
	assert.Len(t, FilterAndSort(deals, domain.DealFilter{Brand: ""}), 2)

	got := FilterAndSort(deals, domain.DealFilter{Brand: "apc"})
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Listing.ItemID)
}

func TestSortOrders(t *testing.T) {
	deals := []domain.Deal{
		mkDeal("a", 30, 5, 16, "x"),
		mkDeal("b", 10, 9, 90, "x"),
		mkDeal("c", 20, 7, 35, "x"),
	}

	byROI := FilterAndSort(deals, domain.DealFilter{Sort: domain.SortByROI})
	assert.Equal(t, []string{"b", "c", "a"}, ids(byROI))

	byProfit := FilterAndSort(deals, domain.DealFilter{Sort: domain.SortByProfit})
	assert.Equal(t, []string{"b", "c", "a"}, ids(byProfit))

	byPrice := FilterAndSort(deals, domain.DealFilter{Sort: domain.SortByPrice})
	assert.Equal(t, []string{"b", "c", "a"}, ids(byPrice))
}

func TestSortStable(t *testing.T) {
	deals := []domain.Deal{
		mkDeal("first", 10, 5, 50, "x"),
		mkDeal("second", 10, 5, 50, "x"),
		mkDeal("third", 10, 5, 50, "x"),
	}
	got := FilterAndSort(deals, domain.DealFilter{Sort: domain.SortByROI})
	assert.Equal(t, []string{"first", "second", "third"}, ids(got))
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	deals := []domain.Deal{
		mkDeal("a", 30, 1, 3, "x"),
		mkDeal("b", 10, 9, 90, "x"),
	}
	_ = FilterAndSort(deals, domain.DealFilter{Sort: domain.SortByPrice})
	assert.Equal(t, "a", deals[0].Listing.ItemID)
	assert.Equal(t, "b", deals[1].Listing.ItemID)
}

func ids(deals []domain.Deal) []string {
	out := make([]string, len(deals))
	for i, d := range deals {
		out[i] = d.Listing.ItemID
	}
	return out
}
