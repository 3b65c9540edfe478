// Package analyzer provides selectable arbitrage analyzers and a registry for
// running them against a per-cycle market view. Each analyzer detects one
// family of opportunity (spatial, triangular, cross-venue) and emits the same
// OpportunitySignal shape, which keeps the scorer kind-agnostic.
package analyzer

import (
	"context"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// Analyzer detects candidate opportunities of one strategy kind.
type Analyzer interface {
	Kind() domain.StrategyKind
	// Analyze scans the view for the given symbols and returns zero or more
	// signals. Missing or empty books skip the affected unit of work; only
	// collaborator failures surface as errors, and the engine converts those
	// to empty results at the cycle barrier.
	Analyze(ctx context.Context, view *domain.MarketView, symbols []string) ([]domain.OpportunitySignal, error)
}

// pairRisk scores settlement risk for a two-venue leg pair from venue tiers.
func pairRisk(a, b domain.VenueInfo) float64 {
	const baseRisk = 0.3
	if a.Tier == domain.Tier1 && b.Tier == domain.Tier1 {
		return baseRisk
	}
	if a.Tier == domain.Tier2 || b.Tier == domain.Tier2 {
		return baseRisk + 0.1
	}
	return baseRisk + 0.2
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}
