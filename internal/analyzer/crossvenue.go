package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// CrossVenueConfig configures the cross-venue analyzer.
type CrossVenueConfig struct {
	Tokens            []string // tokens priced on every chain
	Chains            []string // venue/chain identifiers the oracle serves
	EstablishedChains []string // chains scoring the full confidence weight
	MinProfitFraction float64
	MinConfidence     float64
	// Notional is the quote-currency amount gross profit and transfer cost
	// are estimated against.
	Notional float64
}

// CrossVenue compares a token's oracle price across settlement networks and
// nets the estimated transfer cost before a direction qualifies. Settlement
// is slow (bridging), so time sensitivity is lower and risk higher than the
// spatial analyzer.
type CrossVenue struct {
	cfg         CrossVenueConfig
	oracle      domain.PriceOracle
	costs       domain.TransferCostModel
	established map[string]bool
	logger      *slog.Logger
}

// NewCrossVenue creates a cross-venue analyzer backed by the given price
// oracle and transfer-cost model.
func NewCrossVenue(cfg CrossVenueConfig, oracle domain.PriceOracle, costs domain.TransferCostModel, logger *slog.Logger) *CrossVenue {
	if cfg.Notional <= 0 {
		cfg.Notional = 1000
	}
	return &CrossVenue{
		cfg:         cfg,
		oracle:      oracle,
		costs:       costs,
		established: toSet(cfg.EstablishedChains),
		logger:      logger.With(slog.String("analyzer", "cross_venue")),
	}
}

// Kind returns the strategy kind identifier.
func (a *CrossVenue) Kind() domain.StrategyKind { return domain.StrategyCrossVenue }

type chainQuote struct {
	chain string
	price float64
}

// Analyze obtains each token's reference price on every configured chain and
// evaluates every ordered chain pair. A chain the oracle cannot price skips
// that chain only; an oracle transport failure is returned so the engine can
// log it and contribute an empty result for this analyzer.
func (a *CrossVenue) Analyze(ctx context.Context, view *domain.MarketView, _ []string) ([]domain.OpportunitySignal, error) {
	if len(a.cfg.Chains) < 2 {
		return nil, nil
	}
	var signals []domain.OpportunitySignal
	for _, token := range a.cfg.Tokens {
		quotes, err := a.collectQuotes(ctx, token)
		if err != nil {
			return signals, fmt.Errorf("cross-venue: token %s: %w", token, err)
		}
		if len(quotes) < 2 {
			continue
		}
		for i := range quotes {
			for j := range quotes {
				if i == j {
					continue
				}
				if sig, ok := a.evaluate(view, token, quotes[i], quotes[j]); ok {
					signals = append(signals, sig)
				}
			}
		}
	}
	return signals, nil
}

func (a *CrossVenue) collectQuotes(ctx context.Context, token string) ([]chainQuote, error) {
	var quotes []chainQuote
	for _, chain := range a.cfg.Chains {
		price, err := a.oracle.CrossVenuePrice(ctx, chain, token)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Data absence on one chain is not an error for the cycle;
			// anything else is a transport failure the engine should see.
			if errors.Is(err, domain.ErrNoPrice) {
				a.logger.Debug("no oracle price",
					slog.String("chain", chain),
					slog.String("token", token),
				)
				continue
			}
			return nil, fmt.Errorf("oracle price %s on %s: %w", token, chain, err)
		}
		if price <= 0 {
			continue
		}
		quotes = append(quotes, chainQuote{chain: chain, price: price})
	}
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].chain < quotes[j].chain })
	return quotes, nil
}

// evaluate tests buying on buy.chain and selling on sell.chain, netting the
// estimated transfer cost against gross profit.
func (a *CrossVenue) evaluate(view *domain.MarketView, token string, buy, sell chainQuote) (domain.OpportunitySignal, bool) {
	if sell.price <= buy.price {
		return domain.OpportunitySignal{}, false
	}
	profitFraction := (sell.price - buy.price) / buy.price
	if profitFraction < a.cfg.MinProfitFraction {
		return domain.OpportunitySignal{}, false
	}

	grossProfit := a.cfg.Notional * profitFraction
	cost := a.costs.TransferCost(buy.chain, sell.chain, token, a.cfg.Notional)
	netProfit := grossProfit - cost
	if netProfit <= 0 {
		return domain.OpportunitySignal{}, false
	}

	confidence := a.confidence(profitFraction, cost, netProfit, buy.chain, sell.chain)
	if confidence <= a.cfg.MinConfidence {
		return domain.OpportunitySignal{}, false
	}

	sig := domain.OpportunitySignal{
		ID:              uuid.NewString(),
		Kind:            domain.StrategyCrossVenue,
		Confidence:      confidence,
		ExpectedProfit:  netProfit,
		ProfitFraction:  profitFraction,
		Complexity:      8, // bridge plus a trade on each side
		TimeSensitivity: 5, // settlement is not instantaneous
		RequiredCapital: a.cfg.Notional,
		RiskScore:       0.6, // bridging and settlement risk
		Path: []domain.VenueHop{
			{Venue: buy.chain, Symbol: token, Side: domain.SideBuy, Price: buy.price},
			{Venue: sell.chain, Symbol: token, Side: domain.SideSell, Price: sell.price},
		},
		CreatedAt: view.Now(),
	}
	a.logger.Debug("cross-venue opportunity detected",
		slog.String("token", token),
		slog.String("buy_chain", buy.chain),
		slog.String("sell_chain", sell.chain),
		slog.Float64("profit_fraction", profitFraction),
		slog.Float64("net_profit", netProfit),
	)
	return sig, true
}

// confidence combines a profit term, a cost-to-profit term, and a penalty for
// each chain missing from the established allow-list.
func (a *CrossVenue) confidence(profitFraction, cost, netProfit float64, buyChain, sellChain string) float64 {
	const base = 0.4

	profitTerm := profitFraction * 20
	if profitTerm > 1 {
		profitTerm = 1
	}
	costTerm := 1 - cost/netProfit
	if costTerm < 0.1 {
		costTerm = 0.1
	}
	chainTerm := 1.0
	if !a.established[buyChain] {
		chainTerm *= 0.8
	}
	if !a.established[sellChain] {
		chainTerm *= 0.8
	}
	return clamp01(base * profitTerm * costTerm * chainTerm)
}
