package domain

import "time"

// StrategyStats summarizes the recorded outcomes of one strategy kind. A
// stats store reports ErrUnknownStats until at least MinStatsSamples outcomes
// with both wins and losses have been recorded for the kind.
type StrategyStats struct {
	WinRate float64 // fraction of outcomes with positive profit
	AvgWin  float64 // mean positive profit
	AvgLoss float64 // mean loss magnitude (positive number)
	Samples int
}

// MinStatsSamples is the minimum number of recorded outcomes before the sizer
// trusts historical statistics over the conservative default.
const MinStatsSamples = 10

// Outcome records the realized result of one executed (paper or real) trade.
type Outcome struct {
	ID          string
	Kind        StrategyKind
	Symbol      string
	Profit      float64 // quote currency, negative for a loss
	CapitalUsed float64
	RecordedAt  time.Time
}
