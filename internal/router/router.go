// Package router expands a sized opportunity into per-venue order slices,
// weighing each venue's depth, tier, and latency, and estimating slippage,
// duration, and execution risk for the resulting plan.
package router

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// Config holds order-routing parameters.
type Config struct {
	// DepthLevels is how many top book levels feed the liquidity profile.
	DepthLevels int
	// MinSliceSize is the smallest viable slice; venues whose slice would
	// fall below it are skipped.
	MinSliceSize float64
	// VenueVolumeCap is the fraction of a venue's aggregated depth a slice
	// may consume.
	VenueVolumeCap float64
	// ConcentrationCap is the maximum fraction of the plan's total amount
	// any single venue may carry.
	ConcentrationCap float64
	// MaxLatencyPenalty and MaxVolumeBonus cap the execution-score terms.
	MaxLatencyPenalty float64
	MaxVolumeBonus    float64
}

// Router builds execution plans from the latest market view.
type Router struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Router. Zero-valued caps fall back to the production
// defaults.
func New(cfg Config, logger *slog.Logger) *Router {
	if cfg.DepthLevels <= 0 {
		cfg.DepthLevels = 10
	}
	if cfg.VenueVolumeCap <= 0 {
		cfg.VenueVolumeCap = 0.8
	}
	if cfg.ConcentrationCap <= 0 {
		cfg.ConcentrationCap = 0.4
	}
	if cfg.MaxLatencyPenalty <= 0 {
		cfg.MaxLatencyPenalty = 0.2
	}
	if cfg.MaxVolumeBonus <= 0 {
		cfg.MaxVolumeBonus = 0.2
	}
	return &Router{cfg: cfg, logger: logger.With(slog.String("component", "order_router"))}
}

// venueLiquidity is one venue's liquidity profile for the requested side.
type venueLiquidity struct {
	venue       string
	totalVolume float64
	vwap        float64
	bestPrice   float64
	midPrice    float64
	latencyMs   float64
	execScore   float64
	tier        domain.VenueTier
}

// Plan greedily allocates totalAmount across venues in descending
// execution-score order. If liquidity cannot absorb the full amount the plan
// comes back flagged partial with the shortfall reported; the router never
// blocks waiting for more liquidity.
func (r *Router) Plan(opportunityID, symbol string, side domain.OrderSide, totalAmount float64, view *domain.MarketView) (domain.ExecutionPlan, error) {
	if totalAmount <= 0 {
		return domain.ExecutionPlan{}, fmt.Errorf("router: total amount must be positive, got %g", totalAmount)
	}

	profiles := r.profileVenues(symbol, side, view)
	if len(profiles) == 0 {
		return domain.ExecutionPlan{}, fmt.Errorf("router: %s %s: %w", symbol, side, domain.ErrNoLiquidity)
	}

	plan := domain.ExecutionPlan{
		OpportunityID: opportunityID,
		Symbol:        symbol,
		Side:          side,
		TotalAmount:   totalAmount,
	}

	remaining := totalAmount
	for _, p := range profiles {
		if remaining <= 0 {
			break
		}
		if p.totalVolume <= 0 {
			continue
		}
		size := math.Min(remaining, p.totalVolume*r.cfg.VenueVolumeCap)
		size = math.Min(size, totalAmount*r.cfg.ConcentrationCap)
		if size < r.cfg.MinSliceSize {
			continue
		}
		slice := domain.OrderSlice{
			Venue:           p.venue,
			Symbol:          symbol,
			Side:            side,
			Amount:          size,
			LimitPrice:      p.bestPrice,
			ExpectedFillSec: p.latencyMs / 1000,
			EstimatedCost:   size * p.bestPrice,
		}
		plan.Slices = append(plan.Slices, slice)
		plan.TotalCost += slice.EstimatedCost
		remaining -= size
	}

	if remaining > 0 {
		plan.Partial = true
		plan.Shortfall = remaining
		if remaining > r.cfg.MinSliceSize {
			r.logger.Warn("could not route full amount",
				slog.String("symbol", symbol),
				slog.Float64("requested", totalAmount),
				slog.Float64("shortfall", remaining),
			)
		}
	}

	plan.EstimatedSlippage = r.estimateSlippage(plan.Slices, profiles)
	plan.EstimatedDuration = slowestFill(plan.Slices)
	plan.RiskScore = r.executionRisk(plan.Slices, profiles)
	return plan, nil
}

// profileVenues builds a liquidity profile per venue quoting the symbol and
// returns them ordered by descending execution score. The sort is stable so
// equally scored venues keep the view's deterministic venue order.
func (r *Router) profileVenues(symbol string, side domain.OrderSide, view *domain.MarketView) []venueLiquidity {
	var profiles []venueLiquidity
	for _, venue := range view.VenueIDs(symbol) {
		snap, ok := view.Snapshot(venue, symbol)
		if !ok {
			continue
		}
		levels := snap.Side(side)
		if len(levels) == 0 {
			continue
		}
		if len(levels) > r.cfg.DepthLevels {
			levels = levels[:r.cfg.DepthLevels]
		}

		var totalVolume, weighted float64
		for _, lvl := range levels {
			totalVolume += lvl.Volume
			weighted += lvl.Price * lvl.Volume
		}
		if totalVolume <= 0 {
			continue
		}

		info := view.Venue(venue)
		profiles = append(profiles, venueLiquidity{
			venue:       venue,
			totalVolume: totalVolume,
			vwap:        weighted / totalVolume,
			bestPrice:   levels[0].Price,
			midPrice:    snap.MidPrice(),
			latencyMs:   info.LatencyMs,
			execScore:   r.executionScore(info, totalVolume),
			tier:        info.Tier,
		})
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].execScore > profiles[j].execScore
	})
	return profiles
}

// executionScore rates a venue for routing: 0.5 base plus a tier bonus and a
// depth bonus, minus a latency penalty, clamped to at most 1.0.
func (r *Router) executionScore(info domain.VenueInfo, volume float64) float64 {
	const base = 0.5

	var tierBonus float64
	switch info.Tier {
	case domain.Tier1:
		tierBonus = 0.3
	case domain.Tier2:
		tierBonus = 0.2
	default:
		tierBonus = 0.1
	}
	latencyPenalty := math.Min(info.LatencyMs/1000, r.cfg.MaxLatencyPenalty)
	volumeBonus := math.Min(volume/100, r.cfg.MaxVolumeBonus)

	return math.Min(base+tierBonus+volumeBonus-latencyPenalty, 1.0)
}

// estimateSlippage is the volume-weighted average, across slices, of the
// relative distance between the slice's limit price and its venue's mid
// price. Degenerate mid prices skip the slice.
func (r *Router) estimateSlippage(slices []domain.OrderSlice, profiles []venueLiquidity) float64 {
	var totalAmount float64
	for _, s := range slices {
		totalAmount += s.Amount
	}
	if totalAmount <= 0 {
		return 0
	}

	mids := make(map[string]float64, len(profiles))
	for _, p := range profiles {
		mids[p.venue] = p.midPrice
	}

	var slippage float64
	for _, s := range slices {
		mid := mids[s.Venue]
		if mid <= 0 {
			continue
		}
		slippage += math.Abs(s.LimitPrice-mid) / mid * (s.Amount / totalAmount)
	}
	return slippage
}

func slowestFill(slices []domain.OrderSlice) float64 {
	var slowest float64
	for _, s := range slices {
		if s.ExpectedFillSec > slowest {
			slowest = s.ExpectedFillSec
		}
	}
	return slowest
}

// executionRisk blends venue concentration (more slices spread risk), average
// fill-time risk, and the capital-weighted fraction not resting on tier-1
// venues.
func (r *Router) executionRisk(slices []domain.OrderSlice, profiles []venueLiquidity) float64 {
	if len(slices) == 0 {
		return 1
	}

	concentration := 1 - math.Min(float64(len(slices))/10, 1)

	var totalFill float64
	for _, s := range slices {
		totalFill += s.ExpectedFillSec
	}
	timeRisk := math.Min(totalFill/float64(len(slices))/5, 1)

	tiers := make(map[string]domain.VenueTier, len(profiles))
	for _, p := range profiles {
		tiers[p.venue] = p.tier
	}
	var total, tier1 float64
	for _, s := range slices {
		total += s.Amount
		if tiers[s.Venue] == domain.Tier1 {
			tier1 += s.Amount
		}
	}
	tierRisk := 1.0
	if total > 0 {
		tierRisk = 1 - tier1/total
	}

	risk := concentration*0.3 + timeRisk*0.4 + tierRisk*0.3
	return math.Min(risk, 1)
}
