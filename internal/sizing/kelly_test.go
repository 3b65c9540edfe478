package sizing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStats returns fixed statistics or a fixed error for every kind.
type fakeStats struct {
	stats domain.StrategyStats
	err   error
}

func (f fakeStats) Get(context.Context, domain.StrategyKind) (domain.StrategyStats, error) {
	return f.stats, f.err
}

func (f fakeStats) Invalidate(context.Context, domain.StrategyKind) error { return nil }

func opp(kind domain.StrategyKind, risk float64) domain.OpportunitySignal {
	return domain.OpportunitySignal{
		ID:        "opp-1",
		Kind:      kind,
		RiskScore: risk,
	}
}

func TestSize_UnknownStatsUsesConservativeDefault(t *testing.T) {
	s := NewSizer(SizerConfig{MaxPositionFraction: 0.02},
		fakeStats{err: domain.ErrUnknownStats}, nil, testLogger())

	size, err := s.Size(context.Background(), opp(domain.StrategySpatial, 0.3), 10_000)
	require.NoError(t, err)
	// half of the 2% maximum position
	assert.InDelta(t, 100.00, size, 1e-9)
}

func TestSize_StoreFailureFallsBackConservatively(t *testing.T) {
	s := NewSizer(SizerConfig{MaxPositionFraction: 0.02},
		fakeStats{err: errors.New("redis down")}, nil, testLogger())

	size, err := s.Size(context.Background(), opp(domain.StrategySpatial, 0.3), 10_000)
	require.NoError(t, err)
	assert.InDelta(t, 100.00, size, 1e-9)
}

func TestSize_NegativeEdgeSizesToZero(t *testing.T) {
	// b = 0.5, f = (0.5*0.3 - 0.7)/0.5 < 0, clamped to zero.
	s := NewSizer(SizerConfig{MaxPositionFraction: 0.02},
		fakeStats{stats: domain.StrategyStats{WinRate: 0.3, AvgWin: 10, AvgLoss: 20, Samples: 40}},
		nil, testLogger())

	size, err := s.Size(context.Background(), opp(domain.StrategySpatial, 0.3), 10_000)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestSize_NoRecordedLossesSizesToZero(t *testing.T) {
	s := NewSizer(SizerConfig{MaxPositionFraction: 0.02},
		fakeStats{stats: domain.StrategyStats{WinRate: 1, AvgWin: 10, AvgLoss: 0, Samples: 40}},
		nil, testLogger())

	size, err := s.Size(context.Background(), opp(domain.StrategySpatial, 0.3), 10_000)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestSize_DiscountsApplyInSequence(t *testing.T) {
	// b = 2, f = (2*0.6 - 0.4)/2 = 0.4
	// adjusted = 0.4 * (1 - 0.5*0.3) * 0.8 * 0.9 = 0.2448, capped at 0.02.
	s := NewSizer(SizerConfig{
		MaxPositionFraction: 0.02,
		KindDiscounts:       map[domain.StrategyKind]float64{domain.StrategySpatial: 0.8},
	}, fakeStats{stats: domain.StrategyStats{WinRate: 0.6, AvgWin: 30, AvgLoss: 15, Samples: 40}},
		StaticVolatility{Factor: 0.9}, testLogger())

	size, err := s.Size(context.Background(), opp(domain.StrategySpatial, 0.3), 10_000)
	require.NoError(t, err)
	assert.InDelta(t, 200.00, size, 1e-9)
}

func TestSize_AdjustedFractionClampedAtQuarterKelly(t *testing.T) {
	// b = 10, f = (10*0.9 - 0.1)/10 = 0.89, clamped to 0.25 after discounts.
	s := NewSizer(SizerConfig{
		MaxPositionFraction: 1,
		KindDiscounts:       map[domain.StrategyKind]float64{domain.StrategySpatial: 1},
	}, fakeStats{stats: domain.StrategyStats{WinRate: 0.9, AvgWin: 50, AvgLoss: 5, Samples: 40}},
		StaticVolatility{Factor: 1}, testLogger())

	size, err := s.Size(context.Background(), opp(domain.StrategySpatial, 0), 10_000)
	require.NoError(t, err)
	assert.InDelta(t, 2500.00, size, 1e-9)
}

func TestSize_NonPositiveCapitalFailsLoudly(t *testing.T) {
	s := NewSizer(SizerConfig{MaxPositionFraction: 0.02},
		fakeStats{err: domain.ErrUnknownStats}, nil, testLogger())

	_, err := s.Size(context.Background(), opp(domain.StrategySpatial, 0.3), 0)
	require.ErrorIs(t, err, domain.ErrInvalidCapital)

	_, err = s.Size(context.Background(), opp(domain.StrategySpatial, 0.3), -50)
	require.ErrorIs(t, err, domain.ErrInvalidCapital)
}

func TestAllocate_SizesAgainstRemainingCapital(t *testing.T) {
	s := NewSizer(SizerConfig{MaxPositionFraction: 0.5},
		fakeStats{err: domain.ErrUnknownStats}, nil, testLogger())

	first := opp(domain.StrategySpatial, 0.2)
	first.ID = "first"
	first.ExpectedProfit = 100
	second := opp(domain.StrategyTriangular, 0.2)
	second.ID = "second"
	second.ExpectedProfit = 50

	allocations, err := s.Allocate(context.Background(),
		[]domain.OpportunitySignal{second, first}, 10_000)
	require.NoError(t, err)
	require.Len(t, allocations, 2)

	// Higher risk-adjusted profit sizes first against the full capital.
	assert.Equal(t, "first", allocations[0].OpportunityID)
	assert.InDelta(t, 2500.00, allocations[0].Size, 1e-9) // 10000 * 0.5 * 0.5
	assert.Equal(t, "second", allocations[1].OpportunityID)
	assert.InDelta(t, 1875.00, allocations[1].Size, 1e-9) // 7500 * 0.5 * 0.5
}

func TestAllocate_NonPositiveCapitalFails(t *testing.T) {
	s := NewSizer(SizerConfig{MaxPositionFraction: 0.5},
		fakeStats{err: domain.ErrUnknownStats}, nil, testLogger())

	_, err := s.Allocate(context.Background(),
		[]domain.OpportunitySignal{opp(domain.StrategySpatial, 0.2)}, 0)
	require.ErrorIs(t, err, domain.ErrInvalidCapital)
}
