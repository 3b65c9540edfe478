package analyzer

import (
	"context"
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

func book(venue, symbol string, bids, asks []domain.PriceLevel, at time.Time) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Venue:      venue,
		Symbol:     symbol,
		Bids:       bids,
		Asks:       asks,
		CapturedAt: at,
	}
}

func tier1Venues(ids ...string) []domain.VenueInfo {
	venues := make([]domain.VenueInfo, 0, len(ids))
	for _, id := range ids {
		venues = append(venues, domain.VenueInfo{ID: id, Tier: domain.Tier1, Healthy: true})
	}
	return venues
}

func TestSpatial_DetectsGap(t *testing.T) {
	now := time.Now()
	view := domain.NewMarketView(now, time.Minute, tier1Venues("alpha", "beta"), []domain.MarketSnapshot{
		book("alpha", "BTC/USDT", nil, []domain.PriceLevel{{Price: 100.00, Volume: 2}}, now),
		book("beta", "BTC/USDT", []domain.PriceLevel{{Price: 101.50, Volume: 1}}, nil, now),
	})

	a := NewSpatial(SpatialConfig{
		MinProfitFraction: 0.003,
		MajorSymbols:      []string{"BTC/USDT"},
	}, testLogger())

	signals, err := a.Analyze(context.Background(), view, []string{"BTC/USDT"})
	require.NoError(t, err)
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, domain.StrategySpatial, sig.Kind)
	assert.InDelta(t, 0.015, sig.ProfitFraction, 1e-9)
	// tradable volume = min(2, 1) = 1
	assert.InDelta(t, 1.50, sig.ExpectedProfit, 1e-9)
	assert.InDelta(t, 100.00, sig.RequiredCapital, 1e-9)
	// 0.7 * min(1.5, 1) * (1/10) * 1 * 1 = 0.07
	assert.InDelta(t, 0.07, sig.Confidence, 1e-9)

	require.Len(t, sig.Path, 2)
	assert.Equal(t, "alpha", sig.Path[0].Venue)
	assert.Equal(t, domain.SideBuy, sig.Path[0].Side)
	assert.Equal(t, "beta", sig.Path[1].Venue)
	assert.Equal(t, domain.SideSell, sig.Path[1].Side)
}

func TestSpatial_TestsBothDirections(t *testing.T) {
	// Crossed books: each venue's best bid clears the other's best ask.
	now := time.Now()
	view := domain.NewMarketView(now, time.Minute, tier1Venues("alpha", "beta"), []domain.MarketSnapshot{
		book("alpha", "BTC/USDT",
			[]domain.PriceLevel{{Price: 102, Volume: 5}},
			[]domain.PriceLevel{{Price: 100, Volume: 5}}, now),
		book("beta", "BTC/USDT",
			[]domain.PriceLevel{{Price: 103, Volume: 5}},
			[]domain.PriceLevel{{Price: 99, Volume: 5}}, now),
	})

	a := NewSpatial(SpatialConfig{MinProfitFraction: 0.003}, testLogger())

	signals, err := a.Analyze(context.Background(), view, []string{"BTC/USDT"})
	require.NoError(t, err)
	require.Len(t, signals, 2)

	buyVenues := []string{signals[0].Path[0].Venue, signals[1].Path[0].Venue}
	assert.ElementsMatch(t, []string{"alpha", "beta"}, buyVenues)
}

func TestSpatial_BelowMinProfitSkipped(t *testing.T) {
	now := time.Now()
	view := domain.NewMarketView(now, time.Minute, tier1Venues("alpha", "beta"), []domain.MarketSnapshot{
		book("alpha", "BTC/USDT", nil, []domain.PriceLevel{{Price: 100.00, Volume: 2}}, now),
		book("beta", "BTC/USDT", []domain.PriceLevel{{Price: 100.10, Volume: 1}}, nil, now),
	})

	a := NewSpatial(SpatialConfig{MinProfitFraction: 0.003}, testLogger())

	signals, err := a.Analyze(context.Background(), view, []string{"BTC/USDT"})
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestSpatial_ConfidenceGateDiscards(t *testing.T) {
	now := time.Now()
	view := domain.NewMarketView(now, time.Minute, tier1Venues("alpha", "beta"), []domain.MarketSnapshot{
		book("alpha", "BTC/USDT", nil, []domain.PriceLevel{{Price: 100.00, Volume: 2}}, now),
		book("beta", "BTC/USDT", []domain.PriceLevel{{Price: 101.50, Volume: 1}}, nil, now),
	})

	// Thin volume keeps confidence at 0.07, below the production gate.
	a := NewSpatial(SpatialConfig{
		MinProfitFraction: 0.003,
		MinConfidence:     0.6,
		MajorSymbols:      []string{"BTC/USDT"},
	}, testLogger())

	signals, err := a.Analyze(context.Background(), view, []string{"BTC/USDT"})
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestSpatial_EmptySideSkipsPair(t *testing.T) {
	now := time.Now()
	view := domain.NewMarketView(now, time.Minute, tier1Venues("alpha", "beta"), []domain.MarketSnapshot{
		book("alpha", "BTC/USDT", nil, nil, now),
		book("beta", "BTC/USDT", []domain.PriceLevel{{Price: 101.50, Volume: 1}}, nil, now),
	})

	a := NewSpatial(SpatialConfig{MinProfitFraction: 0.003}, testLogger())

	signals, err := a.Analyze(context.Background(), view, []string{"BTC/USDT"})
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestSpatial_SingleVenueSkipsSymbol(t *testing.T) {
	now := time.Now()
	view := domain.NewMarketView(now, time.Minute, tier1Venues("alpha"), []domain.MarketSnapshot{
		book("alpha", "BTC/USDT",
			[]domain.PriceLevel{{Price: 101, Volume: 1}},
			[]domain.PriceLevel{{Price: 100, Volume: 1}}, now),
	})

	a := NewSpatial(SpatialConfig{MinProfitFraction: 0.003}, testLogger())

	signals, err := a.Analyze(context.Background(), view, []string{"BTC/USDT"})
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestSpatial_StaleSnapshotDroppedAtViewBoundary(t *testing.T) {
	now := time.Now()
	view := domain.NewMarketView(now, 10*time.Second, tier1Venues("alpha", "beta"), []domain.MarketSnapshot{
		book("alpha", "BTC/USDT", nil, []domain.PriceLevel{{Price: 100.00, Volume: 2}}, now),
		book("beta", "BTC/USDT", []domain.PriceLevel{{Price: 101.50, Volume: 1}}, nil, now.Add(-time.Minute)),
	})

	a := NewSpatial(SpatialConfig{MinProfitFraction: 0.003}, testLogger())

	signals, err := a.Analyze(context.Background(), view, []string{"BTC/USDT"})
	require.NoError(t, err)
	assert.Empty(t, signals)
}
