// Package stats implements the strategy-statistics store consumed by the
// position sizer: win rate and average win/loss magnitudes per strategy
// kind, derived from recorded trade outcomes. Statistics stay unknown until
// enough history exists, and recording a new outcome evicts the derived
// statistics so the next read recomputes them.
package stats

import "github.com/mae-kelly/arbitrage/internal/domain"

// Compute derives StrategyStats from a set of outcomes. It returns
// domain.ErrUnknownStats when there are fewer than domain.MinStatsSamples
// outcomes or the history lacks either wins or losses (a loss-free history
// gives the Kelly formula an undefined payoff ratio).
func Compute(outcomes []domain.Outcome) (domain.StrategyStats, error) {
	if len(outcomes) < domain.MinStatsSamples {
		return domain.StrategyStats{}, domain.ErrUnknownStats
	}

	var winSum, lossSum float64
	var wins, losses int
	for _, o := range outcomes {
		switch {
		case o.Profit > 0:
			wins++
			winSum += o.Profit
		case o.Profit < 0:
			losses++
			lossSum += -o.Profit
		}
	}
	if wins == 0 || losses == 0 {
		return domain.StrategyStats{}, domain.ErrUnknownStats
	}

	return domain.StrategyStats{
		WinRate: float64(wins) / float64(len(outcomes)),
		AvgWin:  winSum / float64(wins),
		AvgLoss: lossSum / float64(losses),
		Samples: len(outcomes),
	}, nil
}
