package stats

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// history builds wins outcomes of +winSize followed by losses outcomes of
// -lossSize for the given kind.
func history(kind domain.StrategyKind, wins, losses int, winSize, lossSize float64) []domain.Outcome {
	var out []domain.Outcome
	for i := 0; i < wins; i++ {
		out = append(out, domain.Outcome{
			ID:     fmt.Sprintf("w%d", i),
			Kind:   kind,
			Profit: winSize,
		})
	}
	for i := 0; i < losses; i++ {
		out = append(out, domain.Outcome{
			ID:     fmt.Sprintf("l%d", i),
			Kind:   kind,
			Profit: -lossSize,
		})
	}
	return out
}

func TestCompute_TooFewSamplesIsUnknown(t *testing.T) {
	_, err := Compute(history(domain.StrategySpatial, 5, 4, 10, 5))
	require.ErrorIs(t, err, domain.ErrUnknownStats)
}

func TestCompute_NoLossesIsUnknown(t *testing.T) {
	_, err := Compute(history(domain.StrategySpatial, 12, 0, 10, 0))
	require.ErrorIs(t, err, domain.ErrUnknownStats)
}

func TestCompute_NoWinsIsUnknown(t *testing.T) {
	_, err := Compute(history(domain.StrategySpatial, 0, 12, 0, 5))
	require.ErrorIs(t, err, domain.ErrUnknownStats)
}

func TestCompute_MixedHistory(t *testing.T) {
	got, err := Compute(history(domain.StrategySpatial, 6, 4, 12, 8))
	require.NoError(t, err)

	assert.InDelta(t, 0.6, got.WinRate, 1e-9)
	assert.InDelta(t, 12, got.AvgWin, 1e-9)
	assert.InDelta(t, 8, got.AvgLoss, 1e-9)
	assert.Equal(t, 10, got.Samples)
}

func TestCompute_BreakevenOutcomesCountTowardWinRateOnly(t *testing.T) {
	outcomes := history(domain.StrategySpatial, 5, 4, 10, 5)
	outcomes = append(outcomes, domain.Outcome{ID: "flat", Kind: domain.StrategySpatial})

	got, err := Compute(outcomes)
	require.NoError(t, err)

	// 5 wins over 10 samples; the flat outcome dilutes the win rate but does
	// not shift either average.
	assert.InDelta(t, 0.5, got.WinRate, 1e-9)
	assert.InDelta(t, 10, got.AvgWin, 1e-9)
	assert.InDelta(t, 5, got.AvgLoss, 1e-9)
}

func TestMemoryStore_UnknownUntilEnoughHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, domain.StrategyTriangular)
	require.ErrorIs(t, err, domain.ErrUnknownStats)

	for _, o := range history(domain.StrategyTriangular, 6, 4, 20, 10) {
		require.NoError(t, store.RecordOutcome(ctx, o))
	}

	got, err := store.Get(ctx, domain.StrategyTriangular)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, got.WinRate, 1e-9)
	assert.Equal(t, 10, got.Samples)
}

func TestMemoryStore_RecordInvalidatesCachedStats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, o := range history(domain.StrategySpatial, 6, 4, 20, 10) {
		require.NoError(t, store.RecordOutcome(ctx, o))
	}
	first, err := store.Get(ctx, domain.StrategySpatial)
	require.NoError(t, err)
	assert.Equal(t, 10, first.Samples)

	require.NoError(t, store.RecordOutcome(ctx, domain.Outcome{
		ID: "late", Kind: domain.StrategySpatial, Profit: -30,
	}))

	second, err := store.Get(ctx, domain.StrategySpatial)
	require.NoError(t, err)
	assert.Equal(t, 11, second.Samples)
	assert.Greater(t, second.AvgLoss, first.AvgLoss)
}

func TestMemoryStore_KindsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, o := range history(domain.StrategySpatial, 6, 4, 20, 10) {
		require.NoError(t, store.RecordOutcome(ctx, o))
	}

	_, err := store.Get(ctx, domain.StrategyCrossVenue)
	require.ErrorIs(t, err, domain.ErrUnknownStats)

	_, err = store.Get(ctx, domain.StrategySpatial)
	require.NoError(t, err)
}
