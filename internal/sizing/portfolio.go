package sizing

import (
	"context"
	"fmt"
	"sort"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// Allocation pairs an opportunity ID with its assigned capital.
type Allocation struct {
	OpportunityID string
	Size          float64
}

// Allocate distributes totalCapital across ranked opportunities. It iterates
// in descending expectedProfit/riskScore order, sizing each opportunity
// against the capital remaining after earlier allocations, until capital is
// exhausted or the list ends. An opportunity sized to zero is skipped without
// reserving capital.
func (s *Sizer) Allocate(ctx context.Context, opps []domain.OpportunitySignal, totalCapital float64) ([]Allocation, error) {
	if totalCapital <= 0 {
		return nil, fmt.Errorf("sizing: %w: got %g", domain.ErrInvalidCapital, totalCapital)
	}
	if len(opps) == 0 {
		return nil, nil
	}

	ordered := make([]domain.OpportunitySignal, len(opps))
	copy(ordered, opps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return riskAdjustedProfit(ordered[i]) > riskAdjustedProfit(ordered[j])
	})

	var allocations []Allocation
	remaining := totalCapital
	for _, opp := range ordered {
		if remaining <= 0 {
			break
		}
		size, err := s.Size(ctx, opp, remaining)
		if err != nil {
			return allocations, err
		}
		if size <= 0 {
			continue
		}
		allocations = append(allocations, Allocation{OpportunityID: opp.ID, Size: size})
		remaining -= size
	}
	return allocations, nil
}

// riskAdjustedProfit orders opportunities by expected profit per unit of
// risk. The risk floor keeps near-zero risk scores from dominating.
func riskAdjustedProfit(opp domain.OpportunitySignal) float64 {
	risk := opp.RiskScore
	if risk < 0.1 {
		risk = 0.1
	}
	return opp.ExpectedProfit / risk
}
