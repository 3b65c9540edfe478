// Package scorer normalizes heterogeneous opportunity signals into one
// comparable composite score and produces the ranked, deduplicated shortlist
// a detection cycle hands to the position sizer.
package scorer

import (
	"sort"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// Weights of the composite score terms.
const (
	profitWeight     = 0.4
	confidenceWeight = 0.3
	speedWeight      = 0.2
	riskWeight       = 0.1
)

// minComposite is the quality floor: signals scoring at or below it are
// discarded.
const minComposite = 0.6

// DefaultTopK caps the shortlist length when the configured cap is zero.
const DefaultTopK = 20

// Scorer ranks and filters one cycle's signals. Rank is pure: it performs no
// I/O and mutates its inputs only by attaching the computed composite score.
type Scorer struct {
	cap int
}

// New creates a scorer returning at most topK signals per cycle.
func New(topK int) *Scorer {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Scorer{cap: topK}
}

// Composite computes the composite quality score for one signal:
// 0.4*profit + 0.3*confidence + 0.2*speed + 0.1*(1-risk), where the profit
// term saturates at a 10% profit fraction and the speed term rewards low
// execution complexity.
func Composite(sig domain.OpportunitySignal) float64 {
	profitTerm := sig.ProfitFraction * 100
	if profitTerm > 10 {
		profitTerm = 10
	}
	profitTerm /= 10

	speedTerm := float64(11-sig.Complexity) / 10

	return profitWeight*profitTerm +
		confidenceWeight*sig.Confidence +
		speedWeight*speedTerm +
		riskWeight*(1-sig.RiskScore)
}

// Rank scores every signal, drops those at or below the quality floor,
// deduplicates signals describing the same edge (same kind and venue path,
// keeping the better-scoring one), and returns at most topK survivors in
// descending composite order. Ties break by higher confidence, then lower
// risk, then ID, so the result is deterministic regardless of input order.
func (s *Scorer) Rank(signals []domain.OpportunitySignal) []domain.OpportunitySignal {
	if len(signals) == 0 {
		return nil
	}

	best := make(map[string]domain.OpportunitySignal, len(signals))
	for _, sig := range signals {
		sig.CompositeScore = Composite(sig)
		if sig.CompositeScore <= minComposite {
			continue
		}
		key := sig.PathKey()
		if prev, ok := best[key]; ok && !less(sig, prev) {
			continue
		}
		best[key] = sig
	}
	if len(best) == 0 {
		return nil
	}

	ranked := make([]domain.OpportunitySignal, 0, len(best))
	for _, sig := range best {
		ranked = append(ranked, sig)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return less(ranked[i], ranked[j]) })

	if len(ranked) > s.cap {
		ranked = ranked[:s.cap]
	}
	return ranked
}

// less orders a before b: higher composite first, then higher confidence,
// then lower risk, then ID as the final deterministic tiebreak.
func less(a, b domain.OpportunitySignal) bool {
	if a.CompositeScore != b.CompositeScore {
		return a.CompositeScore > b.CompositeScore
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.RiskScore != b.RiskScore {
		return a.RiskScore < b.RiskScore
	}
	return a.ID < b.ID
}
