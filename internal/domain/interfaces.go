package domain

import (
	"context"
	"time"
)

// SnapshotSource supplies orderbook snapshots and venue health. GetSnapshot
// returns ErrNoSnapshot when no book is known for the venue+symbol; callers
// additionally discard snapshots older than their staleness bound.
type SnapshotSource interface {
	GetSnapshot(ctx context.Context, venue, symbol string) (MarketSnapshot, error)
	GetLatency(venue string) float64 // milliseconds, recent observed
	IsHealthy(venue string) bool
}

// PriceOracle supplies a reference price for a token against a stable quote
// asset on one venue or chain. It returns ErrNoPrice when the venue does not
// quote the token.
type PriceOracle interface {
	CrossVenuePrice(ctx context.Context, venue, token string) (float64, error)
}

// TransferCostModel estimates the quote-currency cost of moving amount of
// token from one venue/chain to another (bridging, gas, settlement).
type TransferCostModel interface {
	TransferCost(fromVenue, toVenue, token string, amount float64) float64
}

// StatsStore provides historical per-strategy statistics for position sizing.
// Get returns ErrUnknownStats until enough outcomes are recorded. Invalidate
// evicts any cached statistics for the kind so the next Get recomputes them.
// Implementations must serialize the read-recompute-invalidate sequence per
// kind.
type StatsStore interface {
	Get(ctx context.Context, kind StrategyKind) (StrategyStats, error)
	Invalidate(ctx context.Context, kind StrategyKind) error
}

// OutcomeRecorder accepts realized trade outcomes. Recording an outcome must
// invalidate any derived statistics for the outcome's kind.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, outcome Outcome) error
}

// OutcomeStore is the persistent ledger of trade outcomes.
type OutcomeStore interface {
	Insert(ctx context.Context, outcome Outcome) error
	ListByKind(ctx context.Context, kind StrategyKind, limit int) ([]Outcome, error)
}

// VolatilitySource reports the current market-volatility discount factor in
// (0, 1]; lower values shrink position sizes during turbulent regimes.
type VolatilitySource interface {
	CurrentFactor(ctx context.Context) float64
}

// LockManager provides distributed locking for cross-process serialization.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalArchiver persists a cycle's scored signals to cold storage.
type SignalArchiver interface {
	ArchiveSignals(ctx context.Context, cycleAt time.Time, signals []OpportunitySignal) error
}
