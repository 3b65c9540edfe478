package domain

// OrderSide is the direction of an order slice.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderSlice is one venue's share of an execution plan.
type OrderSlice struct {
	Venue           string
	Symbol          string
	Side            OrderSide
	Amount          float64 // > 0, base units
	LimitPrice      float64 // > 0
	ExpectedFillSec float64 // >= 0
	EstimatedCost   float64 // Amount * LimitPrice
}

// ExecutionPlan expands a sized opportunity into per-venue order slices.
// Partial is set when available liquidity could not absorb the full amount;
// Shortfall is the unallocated remainder. A partial plan is a result, not an
// error: the caller decides whether to accept, retry, or reject it.
type ExecutionPlan struct {
	OpportunityID     string
	Symbol            string
	Side              OrderSide
	TotalAmount       float64
	Slices            []OrderSlice
	TotalCost         float64
	EstimatedSlippage float64 // volume-weighted fraction
	EstimatedDuration float64 // seconds, slowest slice
	RiskScore         float64 // [0, 1]
	Partial           bool
	Shortfall         float64
}

// AllocatedAmount returns the sum of slice amounts. It never exceeds
// TotalAmount.
func (p ExecutionPlan) AllocatedAmount() float64 {
	var total float64
	for _, s := range p.Slices {
		total += s.Amount
	}
	return total
}
