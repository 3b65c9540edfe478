package analyzer

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// Triangle is one 3-symbol cycle on a single venue: sell PairA's base into
// its quote, trade through PairB, and return to the base via Cross.
type Triangle struct {
	PairA string // e.g. "BTC/USDT"
	PairB string // e.g. "ETH/USDT"
	Cross string // e.g. "ETH/BTC"
}

// TriangularConfig configures the triangular analyzer.
type TriangularConfig struct {
	MinProfitFraction float64
	MinConfidence     float64
	Triangles         []Triangle
	MajorSymbols      []string
	// Notional is the quote-currency amount the expected profit is scaled
	// to when reporting a signal.
	Notional float64
}

// Triangular walks configured 3-edge currency cycles inside one venue, trying
// both traversal directions. All three legs settle on the same venue, so risk
// is lower than spatial but complexity is higher (three sequential fills).
type Triangular struct {
	cfg    TriangularConfig
	majors map[string]bool
	logger *slog.Logger
}

// NewTriangular creates a triangular analyzer.
func NewTriangular(cfg TriangularConfig, logger *slog.Logger) *Triangular {
	if cfg.Notional <= 0 {
		cfg.Notional = 1000
	}
	return &Triangular{
		cfg:    cfg,
		majors: toSet(cfg.MajorSymbols),
		logger: logger.With(slog.String("analyzer", "triangular")),
	}
}

// Kind returns the strategy kind identifier.
func (a *Triangular) Kind() domain.StrategyKind { return domain.StrategyTriangular }

// Analyze checks every configured triangle on every healthy venue. A triangle
// with a missing book, an empty leg, or a zero price skips silently; one bad
// triangle never aborts the scan.
func (a *Triangular) Analyze(ctx context.Context, view *domain.MarketView, _ []string) ([]domain.OpportunitySignal, error) {
	var signals []domain.OpportunitySignal
	for _, venue := range view.HealthyVenueIDs() {
		if err := ctx.Err(); err != nil {
			return signals, err
		}
		for _, tri := range a.cfg.Triangles {
			bookA, okA := view.Snapshot(venue, tri.PairA)
			bookB, okB := view.Snapshot(venue, tri.PairB)
			bookC, okC := view.Snapshot(venue, tri.Cross)
			if !okA || !okB || !okC {
				continue
			}
			if sig, ok := a.evaluate(view, venue, tri, bookA, bookB, bookC, true); ok {
				signals = append(signals, sig)
			}
			if sig, ok := a.evaluate(view, venue, tri, bookA, bookB, bookC, false); ok {
				signals = append(signals, sig)
			}
		}
	}
	return signals, nil
}

// evaluate computes the round-trip return of one unit of base currency in one
// traversal direction. Forward sells the base on PairA, buys through PairB,
// and sells the Cross leg back into base; reverse mirrors the sequence on the
// opposite book sides.
func (a *Triangular) evaluate(view *domain.MarketView, venue string, tri Triangle, bookA, bookB, bookC domain.MarketSnapshot, forward bool) (domain.OpportunitySignal, bool) {
	const startAmount = 1.0
	var final float64
	var path []domain.VenueHop

	if forward {
		bidA, okA := bookA.BestBid()
		askB, okB := bookB.BestAsk()
		bidC, okC := bookC.BestBid()
		if !okA || !okB || !okC || bidA.Price <= 0 || askB.Price <= 0 || bidC.Price <= 0 {
			return domain.OpportunitySignal{}, false
		}
		if bidA.Volume <= 0 || askB.Volume <= 0 || bidC.Volume <= 0 {
			return domain.OpportunitySignal{}, false
		}
		afterA := startAmount * bidA.Price
		afterB := afterA / askB.Price
		final = afterB * bidC.Price
		path = []domain.VenueHop{
			{Venue: venue, Symbol: tri.PairA, Side: domain.SideSell, Price: bidA.Price},
			{Venue: venue, Symbol: tri.PairB, Side: domain.SideBuy, Price: askB.Price},
			{Venue: venue, Symbol: tri.Cross, Side: domain.SideSell, Price: bidC.Price},
		}
	} else {
		askA, okA := bookA.BestAsk()
		bidB, okB := bookB.BestBid()
		askC, okC := bookC.BestAsk()
		if !okA || !okB || !okC || askA.Price <= 0 || bidB.Price <= 0 || askC.Price <= 0 {
			return domain.OpportunitySignal{}, false
		}
		if askA.Volume <= 0 || bidB.Volume <= 0 || askC.Volume <= 0 {
			return domain.OpportunitySignal{}, false
		}
		afterA := startAmount / askA.Price
		afterB := afterA * bidB.Price
		final = afterB / askC.Price
		path = []domain.VenueHop{
			{Venue: venue, Symbol: tri.PairA, Side: domain.SideBuy, Price: askA.Price},
			{Venue: venue, Symbol: tri.PairB, Side: domain.SideSell, Price: bidB.Price},
			{Venue: venue, Symbol: tri.Cross, Side: domain.SideBuy, Price: askC.Price},
		}
	}

	profitFraction := (final - startAmount) / startAmount
	if profitFraction < a.cfg.MinProfitFraction {
		return domain.OpportunitySignal{}, false
	}
	confidence := a.confidence(profitFraction, view.Venue(venue), tri)
	if confidence <= a.cfg.MinConfidence {
		return domain.OpportunitySignal{}, false
	}

	sig := domain.OpportunitySignal{
		ID:              uuid.NewString(),
		Kind:            domain.StrategyTriangular,
		Confidence:      confidence,
		ExpectedProfit:  profitFraction * a.cfg.Notional,
		ProfitFraction:  profitFraction,
		Complexity:      6, // three sequential legs
		TimeSensitivity: 9,
		RequiredCapital: a.cfg.Notional,
		RiskScore:       0.3, // single venue, no cross-venue settlement
		Path:            path,
		CreatedAt:       view.Now(),
	}
	a.logger.Debug("triangular opportunity detected",
		slog.String("venue", venue),
		slog.String("pair_a", tri.PairA),
		slog.String("pair_b", tri.PairB),
		slog.String("cross", tri.Cross),
		slog.Bool("forward", forward),
		slog.Float64("profit_fraction", profitFraction),
	)
	return sig, true
}

// confidence combines a profit term, a venue-tier term, and a pair-quality
// term (share of major pairs among the three legs).
func (a *Triangular) confidence(profitFraction float64, venue domain.VenueInfo, tri Triangle) float64 {
	const base = 0.6

	profitTerm := profitFraction * 50
	if profitTerm > 1 {
		profitTerm = 1
	}
	var tierTerm float64
	switch venue.Tier {
	case domain.Tier1:
		tierTerm = 1.0
	case domain.Tier2:
		tierTerm = 0.9
	default:
		tierTerm = 0.7
	}
	majorCount := 0
	for _, pair := range []string{tri.PairA, tri.PairB, tri.Cross} {
		if a.majors[pair] {
			majorCount++
		}
	}
	pairTerm := 0.6 + float64(majorCount)/3*0.4

	return clamp01(base * profitTerm * tierTerm * pairTerm)
}
