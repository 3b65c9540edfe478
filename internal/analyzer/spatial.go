package analyzer

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// SpatialConfig configures the spatial analyzer.
type SpatialConfig struct {
	MinProfitFraction float64  // minimum (sellBid-buyAsk)/buyAsk to qualify
	MinConfidence     float64  // signals at or below are discarded here
	MajorSymbols      []string // symbols scoring the full tier multiplier
	VolumeNorm        float64  // volume saturating the volume term
	LatencyNormMs     float64  // combined latency saturating the latency term
}

// Spatial detects price gaps for one symbol between pairs of venues: buy the
// best ask on one venue, sell into the best bid on another. Both directions
// of every unordered venue pair are tested.
type Spatial struct {
	cfg    SpatialConfig
	majors map[string]bool
	logger *slog.Logger
}

// NewSpatial creates a spatial analyzer.
func NewSpatial(cfg SpatialConfig, logger *slog.Logger) *Spatial {
	if cfg.VolumeNorm <= 0 {
		cfg.VolumeNorm = 10
	}
	if cfg.LatencyNormMs <= 0 {
		cfg.LatencyNormMs = 1000
	}
	return &Spatial{
		cfg:    cfg,
		majors: toSet(cfg.MajorSymbols),
		logger: logger.With(slog.String("analyzer", "spatial")),
	}
}

// Kind returns the strategy kind identifier.
func (a *Spatial) Kind() domain.StrategyKind { return domain.StrategySpatial }

// Analyze walks every unordered venue pair per symbol and emits a signal for
// each direction whose profit fraction and confidence clear the configured
// floors. Venues with missing or empty-side books skip the pair silently.
func (a *Spatial) Analyze(ctx context.Context, view *domain.MarketView, symbols []string) ([]domain.OpportunitySignal, error) {
	var signals []domain.OpportunitySignal
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return signals, err
		}
		venues := view.VenueIDs(symbol)
		if len(venues) < 2 {
			continue
		}
		for i := 0; i < len(venues); i++ {
			for j := i + 1; j < len(venues); j++ {
				if sig, ok := a.evaluate(view, symbol, venues[i], venues[j]); ok {
					signals = append(signals, sig)
				}
				if sig, ok := a.evaluate(view, symbol, venues[j], venues[i]); ok {
					signals = append(signals, sig)
				}
			}
		}
	}
	return signals, nil
}

// evaluate tests one direction: buy on buyVenue's ask, sell into sellVenue's
// bid.
func (a *Spatial) evaluate(view *domain.MarketView, symbol, buyVenue, sellVenue string) (domain.OpportunitySignal, bool) {
	buyBook, ok := view.Snapshot(buyVenue, symbol)
	if !ok {
		return domain.OpportunitySignal{}, false
	}
	sellBook, ok := view.Snapshot(sellVenue, symbol)
	if !ok {
		return domain.OpportunitySignal{}, false
	}
	ask, ok := buyBook.BestAsk()
	if !ok || ask.Price <= 0 {
		return domain.OpportunitySignal{}, false
	}
	bid, ok := sellBook.BestBid()
	if !ok || bid.Price <= ask.Price {
		return domain.OpportunitySignal{}, false
	}

	profitFraction := (bid.Price - ask.Price) / ask.Price
	if profitFraction < a.cfg.MinProfitFraction {
		return domain.OpportunitySignal{}, false
	}
	volume := ask.Volume
	if bid.Volume < volume {
		volume = bid.Volume
	}
	if volume <= 0 {
		return domain.OpportunitySignal{}, false
	}

	buyInfo := view.Venue(buyVenue)
	sellInfo := view.Venue(sellVenue)
	confidence := a.confidence(profitFraction, volume, buyInfo.LatencyMs+sellInfo.LatencyMs, symbol)
	if confidence <= a.cfg.MinConfidence {
		return domain.OpportunitySignal{}, false
	}

	sig := domain.OpportunitySignal{
		ID:              uuid.NewString(),
		Kind:            domain.StrategySpatial,
		Confidence:      confidence,
		ExpectedProfit:  (bid.Price - ask.Price) * volume,
		ProfitFraction:  profitFraction,
		Complexity:      2, // one buy, one sell
		TimeSensitivity: 8,
		RequiredCapital: ask.Price * volume,
		RiskScore:       pairRisk(buyInfo, sellInfo),
		Path: []domain.VenueHop{
			{Venue: buyVenue, Symbol: symbol, Side: domain.SideBuy, Price: ask.Price},
			{Venue: sellVenue, Symbol: symbol, Side: domain.SideSell, Price: bid.Price},
		},
		CreatedAt: view.Now(),
	}
	a.logger.Debug("spatial opportunity detected",
		slog.String("symbol", symbol),
		slog.String("buy_venue", buyVenue),
		slog.String("sell_venue", sellVenue),
		slog.Float64("profit_fraction", profitFraction),
		slog.Float64("confidence", confidence),
	)
	return sig, true
}

// confidence is a bounded product of profit, volume, latency, and symbol-tier
// terms. The latency term floors at 0.1 so a slow venue dampens rather than
// zeroes a signal.
func (a *Spatial) confidence(profitFraction, volume, latencyMs float64, symbol string) float64 {
	const base = 0.7

	profitTerm := profitFraction * 100
	if profitTerm > 1 {
		profitTerm = 1
	}
	volumeTerm := volume / a.cfg.VolumeNorm
	if volumeTerm > 1 {
		volumeTerm = 1
	}
	latencyTerm := 1 - latencyMs/a.cfg.LatencyNormMs
	if latencyTerm < 0.1 {
		latencyTerm = 0.1
	}
	symbolTerm := 0.8
	if a.majors[symbol] {
		symbolTerm = 1.0
	}
	return clamp01(base * profitTerm * volumeTerm * latencyTerm * symbolTerm)
}
