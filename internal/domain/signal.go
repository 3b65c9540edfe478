package domain

import "time"

// StrategyKind identifies the analyzer family that produced a signal.
type StrategyKind string

const (
	StrategySpatial    StrategyKind = "spatial"
	StrategyTriangular StrategyKind = "triangular"
	StrategyCrossVenue StrategyKind = "cross_venue"
)

// VenueHop is one step of an opportunity's execution path: trade the given
// symbol on the given venue at the quoted price.
type VenueHop struct {
	Venue  string
	Symbol string
	Side   OrderSide
	Price  float64
}

// OpportunitySignal is a candidate arbitrage opportunity produced by one
// analyzer during one detection cycle. It is consumed by the scorer and sizer
// within the same cycle and then discarded; the engine never persists it.
type OpportunitySignal struct {
	ID              string
	Kind            StrategyKind
	Confidence      float64 // [0, 1]
	ExpectedProfit  float64 // quote-currency profit at tradable volume
	ProfitFraction  float64
	Complexity      int // 1-10, legs and venues involved
	TimeSensitivity int // 1-10, how fast the edge decays
	RequiredCapital float64
	RiskScore       float64 // [0, 1]
	CompositeScore  float64 // attached by the scorer
	Path            []VenueHop
	CreatedAt       time.Time
}

// PathKey returns a stable identity for deduplication: two signals of the same
// kind walking the same venue/symbol/side sequence describe the same edge.
func (s OpportunitySignal) PathKey() string {
	key := string(s.Kind)
	for _, hop := range s.Path {
		key += "|" + hop.Venue + ":" + hop.Symbol + ":" + string(hop.Side)
	}
	return key
}
