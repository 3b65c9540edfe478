package router

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRouter() *Router {
	return New(Config{
		DepthLevels:       10,
		MinSliceSize:      0.01,
		VenueVolumeCap:    0.8,
		ConcentrationCap:  0.4,
		MaxLatencyPenalty: 0.2,
		MaxVolumeBonus:    0.2,
	}, testLogger())
}

func viewWith(venues []domain.VenueInfo, books []domain.MarketSnapshot) *domain.MarketView {
	return domain.NewMarketView(time.Now(), time.Minute, venues, books)
}

func sellBook(venue string, bids []domain.PriceLevel) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Venue:      venue,
		Symbol:     "BTC/USDT",
		Bids:       bids,
		CapturedAt: time.Now(),
	}
}

func TestPlan_SplitsAcrossEquallyScoredVenues(t *testing.T) {
	// alpha: tier1, depth 5, no latency  -> 0.5 + 0.3 + 0.05        = 0.85
	// beta:  tier1, depth 20, 150ms      -> 0.5 + 0.3 + 0.20 - 0.15 = 0.85
	// Equal scores keep the deterministic venue order: alpha first.
	venues := []domain.VenueInfo{
		{ID: "alpha", Tier: domain.Tier1, Healthy: true},
		{ID: "beta", Tier: domain.Tier1, LatencyMs: 150, Healthy: true},
	}
	view := viewWith(venues, []domain.MarketSnapshot{
		sellBook("alpha", []domain.PriceLevel{{Price: 100, Volume: 5}}),
		sellBook("beta", []domain.PriceLevel{{Price: 100, Volume: 20}}),
	})

	plan, err := testRouter().Plan("opp-1", "BTC/USDT", domain.SideSell, 10, view)
	require.NoError(t, err)

	// Each venue is capped at 40% of the requested 10.
	require.Len(t, plan.Slices, 2)
	assert.Equal(t, "alpha", plan.Slices[0].Venue)
	assert.InDelta(t, 4.0, plan.Slices[0].Amount, 1e-9)
	assert.Equal(t, "beta", plan.Slices[1].Venue)
	assert.InDelta(t, 4.0, plan.Slices[1].Amount, 1e-9)

	assert.True(t, plan.Partial)
	assert.InDelta(t, 2.0, plan.Shortfall, 1e-9)
	assert.InDelta(t, 8.0, plan.AllocatedAmount(), 1e-9)
}

func TestPlan_VenueVolumeCapLimitsSlice(t *testing.T) {
	venues := []domain.VenueInfo{{ID: "alpha", Tier: domain.Tier1, Healthy: true}}
	view := viewWith(venues, []domain.MarketSnapshot{
		sellBook("alpha", []domain.PriceLevel{{Price: 100, Volume: 5}}),
	})

	// Concentration cap would allow 40, but 80% of the 5 depth wins.
	plan, err := testRouter().Plan("opp-1", "BTC/USDT", domain.SideSell, 100, view)
	require.NoError(t, err)

	require.Len(t, plan.Slices, 1)
	assert.InDelta(t, 4.0, plan.Slices[0].Amount, 1e-9)
	assert.True(t, plan.Partial)
}

func TestPlan_AllocatedNeverExceedsRequested(t *testing.T) {
	venues := []domain.VenueInfo{
		{ID: "alpha", Tier: domain.Tier1, Healthy: true},
		{ID: "beta", Tier: domain.Tier2, Healthy: true},
		{ID: "gamma", Tier: domain.Tier3, Healthy: true},
	}
	view := viewWith(venues, []domain.MarketSnapshot{
		sellBook("alpha", []domain.PriceLevel{{Price: 100, Volume: 500}}),
		sellBook("beta", []domain.PriceLevel{{Price: 100, Volume: 500}}),
		sellBook("gamma", []domain.PriceLevel{{Price: 100, Volume: 500}}),
	})

	plan, err := testRouter().Plan("opp-1", "BTC/USDT", domain.SideSell, 10, view)
	require.NoError(t, err)
	assert.LessOrEqual(t, plan.AllocatedAmount(), 10.0+1e-9)
	assert.False(t, plan.Partial)
}

func TestPlan_SmallShortfallStillReported(t *testing.T) {
	// With a raised minimum slice size the 2.0 left over after both
	// concentration-capped slices is below the slice floor, but the plan
	// must still disclose it rather than pass as fully routed.
	r := New(Config{
		DepthLevels:       10,
		MinSliceSize:      3,
		VenueVolumeCap:    0.8,
		ConcentrationCap:  0.4,
		MaxLatencyPenalty: 0.2,
		MaxVolumeBonus:    0.2,
	}, testLogger())

	venues := []domain.VenueInfo{
		{ID: "alpha", Tier: domain.Tier1, Healthy: true},
		{ID: "beta", Tier: domain.Tier1, Healthy: true},
	}
	view := viewWith(venues, []domain.MarketSnapshot{
		sellBook("alpha", []domain.PriceLevel{{Price: 100, Volume: 500}}),
		sellBook("beta", []domain.PriceLevel{{Price: 100, Volume: 500}}),
	})

	plan, err := r.Plan("opp-1", "BTC/USDT", domain.SideSell, 10, view)
	require.NoError(t, err)

	require.Len(t, plan.Slices, 2)
	assert.InDelta(t, 8.0, plan.AllocatedAmount(), 1e-9)
	assert.True(t, plan.Partial)
	assert.InDelta(t, 2.0, plan.Shortfall, 1e-9)
}

func TestPlan_NoLiquidity(t *testing.T) {
	view := viewWith([]domain.VenueInfo{{ID: "alpha", Tier: domain.Tier1, Healthy: true}}, nil)

	_, err := testRouter().Plan("opp-1", "BTC/USDT", domain.SideSell, 10, view)
	require.ErrorIs(t, err, domain.ErrNoLiquidity)
}

func TestPlan_NonPositiveAmountRejected(t *testing.T) {
	view := viewWith(nil, nil)
	_, err := testRouter().Plan("opp-1", "BTC/USDT", domain.SideSell, 0, view)
	require.Error(t, err)
}

func TestPlan_SlippageFromMidPrice(t *testing.T) {
	venues := []domain.VenueInfo{{ID: "alpha", Tier: domain.Tier1, Healthy: true}}
	view := viewWith(venues, []domain.MarketSnapshot{
		{
			Venue:      "alpha",
			Symbol:     "BTC/USDT",
			Bids:       []domain.PriceLevel{{Price: 99, Volume: 100}},
			Asks:       []domain.PriceLevel{{Price: 101, Volume: 100}},
			CapturedAt: time.Now(),
		},
	})

	plan, err := testRouter().Plan("opp-1", "BTC/USDT", domain.SideSell, 10, view)
	require.NoError(t, err)
	// limit 99 against mid 100 on a single slice
	assert.InDelta(t, 0.01, plan.EstimatedSlippage, 1e-9)
}

func TestPlan_RiskFallsAsSlicesSpread(t *testing.T) {
	r := testRouter()

	oneVenue := viewWith(
		[]domain.VenueInfo{{ID: "alpha", Tier: domain.Tier1, Healthy: true}},
		[]domain.MarketSnapshot{
			sellBook("alpha", []domain.PriceLevel{{Price: 100, Volume: 100}}),
		})
	twoVenues := viewWith(
		[]domain.VenueInfo{
			{ID: "alpha", Tier: domain.Tier1, Healthy: true},
			{ID: "beta", Tier: domain.Tier1, Healthy: true},
		},
		[]domain.MarketSnapshot{
			sellBook("alpha", []domain.PriceLevel{{Price: 100, Volume: 100}}),
			sellBook("beta", []domain.PriceLevel{{Price: 100, Volume: 100}}),
		})

	single, err := r.Plan("opp-1", "BTC/USDT", domain.SideSell, 10, oneVenue)
	require.NoError(t, err)
	spread, err := r.Plan("opp-1", "BTC/USDT", domain.SideSell, 10, twoVenues)
	require.NoError(t, err)

	require.Len(t, single.Slices, 1)
	require.Len(t, spread.Slices, 2)
	assert.Less(t, spread.RiskScore, single.RiskScore)
}

func TestPlan_Tier1WeightLowersRisk(t *testing.T) {
	r := testRouter()

	tier1 := viewWith(
		[]domain.VenueInfo{{ID: "alpha", Tier: domain.Tier1, Healthy: true}},
		[]domain.MarketSnapshot{
			sellBook("alpha", []domain.PriceLevel{{Price: 100, Volume: 100}}),
		})
	tier3 := viewWith(
		[]domain.VenueInfo{{ID: "alpha", Tier: domain.Tier3, Healthy: true}},
		[]domain.MarketSnapshot{
			sellBook("alpha", []domain.PriceLevel{{Price: 100, Volume: 100}}),
		})

	onTier1, err := r.Plan("opp-1", "BTC/USDT", domain.SideSell, 10, tier1)
	require.NoError(t, err)
	onTier3, err := r.Plan("opp-1", "BTC/USDT", domain.SideSell, 10, tier3)
	require.NoError(t, err)

	assert.Less(t, onTier1.RiskScore, onTier3.RiskScore)
}
