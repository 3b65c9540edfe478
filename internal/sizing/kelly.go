// Package sizing converts scored opportunities into bounded capital
// allocations using a risk-adjusted Kelly rule over recorded strategy
// statistics.
package sizing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// maxAdjustedFraction caps the risk-adjusted Kelly fraction before the
// portfolio-level maximum applies.
const maxAdjustedFraction = 0.25

// SizerConfig configures the Kelly position sizer.
type SizerConfig struct {
	// MaxPositionFraction is the hard per-position cap on the capital
	// fraction, applied after every discount.
	MaxPositionFraction float64
	// KindDiscounts maps strategy kind to its conservatism factor.
	KindDiscounts map[domain.StrategyKind]float64
	// DefaultKindDiscount applies for kinds absent from KindDiscounts.
	DefaultKindDiscount float64
}

// Sizer computes position sizes from historical strategy statistics. The
// statistics store owns serialization of its read-recompute-invalidate
// sequence; the sizer only reads.
type Sizer struct {
	cfg        SizerConfig
	stats      domain.StatsStore
	volatility domain.VolatilitySource
	logger     *slog.Logger
}

// NewSizer creates a position sizer.
func NewSizer(cfg SizerConfig, stats domain.StatsStore, volatility domain.VolatilitySource, logger *slog.Logger) *Sizer {
	if cfg.DefaultKindDiscount <= 0 {
		cfg.DefaultKindDiscount = 0.7
	}
	return &Sizer{
		cfg:        cfg,
		stats:      stats,
		volatility: volatility,
		logger:     logger.With(slog.String("component", "position_sizer")),
	}
}

// Size returns the capital allocation for one opportunity against the given
// available capital. Unknown statistics produce the conservative default of
// half the maximum position. A non-positive capital is a caller bug and
// fails loudly.
func (s *Sizer) Size(ctx context.Context, opp domain.OpportunitySignal, capital float64) (float64, error) {
	if capital <= 0 {
		return 0, fmt.Errorf("sizing: %w: got %g", domain.ErrInvalidCapital, capital)
	}

	stats, err := s.stats.Get(ctx, opp.Kind)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownStats) {
			return capital * s.cfg.MaxPositionFraction * 0.5, nil
		}
		// A stats-store failure is a collaborator failure: fall back to the
		// conservative default rather than failing the cycle.
		s.logger.Warn("stats store failed, using conservative default",
			slog.String("kind", string(opp.Kind)),
			slog.String("error", err.Error()),
		)
		return capital * s.cfg.MaxPositionFraction * 0.5, nil
	}

	raw := kellyFraction(stats)
	adjusted := s.applyDiscounts(ctx, raw, opp.RiskScore, opp.Kind)

	final := adjusted
	if final > s.cfg.MaxPositionFraction {
		final = s.cfg.MaxPositionFraction
	}
	size := capital * final

	s.logger.Debug("kelly sizing",
		slog.String("kind", string(opp.Kind)),
		slog.Float64("raw_fraction", raw),
		slog.Float64("adjusted_fraction", adjusted),
		slog.Float64("final_fraction", final),
		slog.Float64("size", size),
	)
	return size, nil
}

// kellyFraction computes the raw Kelly fraction f = (b*p - q)/b with
// b = avgWin/avgLoss, clamped to be non-negative. Degenerate statistics
// (no recorded losses) yield zero.
func kellyFraction(stats domain.StrategyStats) float64 {
	if stats.AvgLoss <= 0 {
		return 0
	}
	b := stats.AvgWin / stats.AvgLoss
	if b <= 0 {
		return 0
	}
	p := stats.WinRate
	q := 1 - p
	f := (b*p - q) / b
	if f < 0 {
		return 0
	}
	return f
}

// applyDiscounts shrinks the raw fraction by the opportunity's risk score,
// the strategy-kind conservatism factor, and the current market-volatility
// factor, clamping the product to [0, maxAdjustedFraction].
func (s *Sizer) applyDiscounts(ctx context.Context, fraction, riskScore float64, kind domain.StrategyKind) float64 {
	riskDiscount := 1 - 0.5*riskScore

	kindDiscount, ok := s.cfg.KindDiscounts[kind]
	if !ok {
		kindDiscount = s.cfg.DefaultKindDiscount
	}

	volFactor := 1.0
	if s.volatility != nil {
		volFactor = s.volatility.CurrentFactor(ctx)
	}

	adjusted := fraction * riskDiscount * kindDiscount * volFactor
	if adjusted < 0 {
		return 0
	}
	if adjusted > maxAdjustedFraction {
		return maxAdjustedFraction
	}
	return adjusted
}
