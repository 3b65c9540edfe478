// Package engine coordinates one detection cycle: it assembles an immutable
// market view, fans the analyzers out concurrently, joins them at a barrier,
// and hands the surviving signals to the scorer. It also exposes execution
// planning for a chosen opportunity.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mae-kelly/arbitrage/internal/analyzer"
	"github.com/mae-kelly/arbitrage/internal/domain"
	"github.com/mae-kelly/arbitrage/internal/metrics"
	"github.com/mae-kelly/arbitrage/internal/router"
	"github.com/mae-kelly/arbitrage/internal/scorer"
	"github.com/mae-kelly/arbitrage/internal/sizing"
)

// Config configures the detection engine.
type Config struct {
	// Venues lists the venue IDs and tiers the engine monitors.
	Venues []domain.VenueInfo
	// StalenessBound is the maximum snapshot age; older books are treated
	// as absent.
	StalenessBound time.Duration
	// MaxConcurrency bounds per-cycle snapshot fetches so the engine
	// respects venue-side rate limits enforced by the source.
	MaxConcurrency int
}

// Engine is the core detection and planning coordinator.
type Engine struct {
	cfg      Config
	source   domain.SnapshotSource
	registry *analyzer.Registry
	scorer   *scorer.Scorer
	sizer    *sizing.Sizer
	router   *router.Router
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu       sync.Mutex
	lastView *domain.MarketView
}

// New creates an Engine. The metrics handle may be nil (tests).
func New(cfg Config, source domain.SnapshotSource, registry *analyzer.Registry, sc *scorer.Scorer, sz *sizing.Sizer, rt *router.Router, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	return &Engine{
		cfg:      cfg,
		source:   source,
		registry: registry,
		scorer:   sc,
		sizer:    sz,
		router:   rt,
		metrics:  m,
		logger:   logger.With(slog.String("component", "engine")),
	}
}

// Detect runs one detection cycle for the given symbols and returns the
// ranked shortlist of opportunities. The cycle is cancellable as a unit via
// ctx; an individual analyzer failure is logged and contributes an empty
// result instead of failing the cycle.
func (e *Engine) Detect(ctx context.Context, symbols []string) ([]domain.OpportunitySignal, error) {
	started := time.Now()

	view, err := e.buildView(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("engine: build market view: %w", err)
	}
	e.mu.Lock()
	e.lastView = view
	e.mu.Unlock()

	analyzers := e.registry.All()
	results := make([][]domain.OpportunitySignal, len(analyzers))

	// Fan out the analyzers; the Wait below is the cycle's join barrier.
	// Tasks always return nil so one analyzer's failure never cancels its
	// siblings; errors are captured per task.
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range analyzers {
		g.Go(func() error {
			signals, aerr := a.Analyze(gctx, view, symbols)
			if aerr != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				e.logger.Warn("analyzer failed, contributing empty result",
					slog.String("kind", string(a.Kind())),
					slog.String("error", aerr.Error()),
				)
				if e.metrics != nil {
					e.metrics.RecordAnalyzerError(string(a.Kind()))
				}
				return nil
			}
			results[i] = signals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []domain.OpportunitySignal
	for i, signals := range results {
		all = append(all, signals...)
		if e.metrics != nil {
			e.metrics.RecordSignals(string(analyzers[i].Kind()), len(signals))
		}
	}

	ranked := e.scorer.Rank(all)

	if e.metrics != nil {
		e.metrics.RecordCycle(time.Since(started), len(ranked))
	}
	e.logger.Info("detection cycle complete",
		slog.Int("raw_signals", len(all)),
		slog.Int("ranked_signals", len(ranked)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return ranked, nil
}

// PlanExecution sizes the opportunity against the given capital and expands
// the allocation into a multi-venue execution plan using the most recent
// cycle's market view. Non-positive capital fails loudly: it indicates a
// caller bug, not a runtime condition.
func (e *Engine) PlanExecution(ctx context.Context, opp domain.OpportunitySignal, capital float64) (domain.ExecutionPlan, error) {
	if capital <= 0 {
		return domain.ExecutionPlan{}, fmt.Errorf("engine: %w: got %g", domain.ErrInvalidCapital, capital)
	}
	if len(opp.Path) == 0 {
		return domain.ExecutionPlan{}, fmt.Errorf("engine: opportunity %s has no venue path", opp.ID)
	}

	e.mu.Lock()
	view := e.lastView
	e.mu.Unlock()
	if view == nil {
		return domain.ExecutionPlan{}, fmt.Errorf("engine: no market view; run Detect first")
	}

	allocation, err := e.sizer.Size(ctx, opp, capital)
	if err != nil {
		return domain.ExecutionPlan{}, err
	}
	if allocation <= 0 {
		return domain.ExecutionPlan{}, fmt.Errorf("engine: opportunity %s sized to zero", opp.ID)
	}

	entry := opp.Path[0]
	if entry.Price <= 0 {
		return domain.ExecutionPlan{}, fmt.Errorf("engine: opportunity %s has no entry price", opp.ID)
	}
	amount := allocation / entry.Price

	plan, err := e.router.Plan(opp.ID, entry.Symbol, entry.Side, amount, view)
	if err != nil {
		return domain.ExecutionPlan{}, fmt.Errorf("engine: plan execution: %w", err)
	}
	if e.metrics != nil {
		e.metrics.RecordPlan(plan.Partial)
	}
	return plan, nil
}

// buildView fetches snapshots for every venue+symbol combination with bounded
// concurrency and assembles the cycle's immutable view. Missing snapshots and
// per-fetch failures skip that book; only context cancellation aborts.
func (e *Engine) buildView(ctx context.Context, symbols []string) (*domain.MarketView, error) {
	now := time.Now()

	venues := make([]domain.VenueInfo, 0, len(e.cfg.Venues))
	for _, v := range e.cfg.Venues {
		info := v
		info.LatencyMs = e.source.GetLatency(v.ID)
		info.Healthy = e.source.IsHealthy(v.ID)
		venues = append(venues, info)
	}

	type fetch struct {
		venue, symbol string
	}
	var fetches []fetch
	for _, v := range venues {
		if !v.Healthy {
			continue
		}
		for _, sym := range symbols {
			fetches = append(fetches, fetch{venue: v.ID, symbol: sym})
		}
	}

	books := make([]domain.MarketSnapshot, len(fetches))
	found := make([]bool, len(fetches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxConcurrency)
	for i, f := range fetches {
		g.Go(func() error {
			snap, err := e.source.GetSnapshot(gctx, f.venue, f.symbol)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return nil // absent book, skip
			}
			books[i] = snap
			found[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	present := make([]domain.MarketSnapshot, 0, len(books))
	for i, ok := range found {
		if ok {
			present = append(present, books[i])
		}
	}
	return domain.NewMarketView(now, e.cfg.StalenessBound, venues, present), nil
}
