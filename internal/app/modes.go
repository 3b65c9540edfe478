package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mae-kelly/arbitrage/internal/domain"
	"github.com/mae-kelly/arbitrage/internal/server"
)

// maxPaperFills bounds how many top-ranked opportunities are paper-filled
// per cycle.
const maxPaperFills = 3

// signalCache holds the latest cycle's ranked signals for the ops server.
type signalCache struct {
	mu      sync.RWMutex
	signals []domain.OpportunitySignal
}

func (c *signalCache) set(signals []domain.OpportunitySignal) {
	c.mu.Lock()
	c.signals = signals
	c.mu.Unlock()
}

func (c *signalCache) get() []domain.OpportunitySignal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.signals
}

// DetectMode runs the detection loop and publishes ranked signals without
// planning or recording any fills.
func (a *App) DetectMode(ctx context.Context, deps *Dependencies) error {
	return a.runLoop(ctx, deps, nil)
}

// PaperMode runs the detection loop and paper-fills the top opportunities
// each cycle, recording the simulated outcomes so the sizer's statistics
// converge on realistic values.
func (a *App) PaperMode(ctx context.Context, deps *Dependencies) error {
	return a.runLoop(ctx, deps, a.paperFill)
}

// runLoop starts the feed, the ops server, and the detection ticker, and
// blocks until the context is cancelled.
func (a *App) runLoop(ctx context.Context, deps *Dependencies, fill func(context.Context, *Dependencies, []domain.OpportunitySignal)) error {
	if err := deps.Feed.Start(ctx); err != nil {
		return err
	}
	defer deps.Feed.Close()

	cache := &signalCache{}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.Server.Enabled {
		srv := server.New(server.Config{Port: a.cfg.Server.Port}, deps.Feed, deps.Venues, cache.get, a.logger)
		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Detector.Interval.Duration)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}

			signals, err := deps.Engine.Detect(ctx, a.cfg.Detector.Symbols)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.logger.ErrorContext(ctx, "detection cycle failed",
					slog.String("error", err.Error()))
				continue
			}
			cache.set(signals)

			if deps.Archiver != nil {
				if err := deps.Archiver.ArchiveSignals(ctx, time.Now(), signals); err != nil {
					a.logger.WarnContext(ctx, "signal archival failed",
						slog.String("error", err.Error()))
				}
			}

			if fill != nil {
				fill(ctx, deps, signals)
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// paperFill plans the top opportunities against the configured capital and
// records their simulated outcomes. Fills are assumed to land at plan prices
// less estimated slippage; the shortfall of a partial plan simply shrinks
// the position.
func (a *App) paperFill(ctx context.Context, deps *Dependencies, signals []domain.OpportunitySignal) {
	remaining := a.cfg.Sizing.Capital

	fills := 0
	for _, opp := range signals {
		if fills >= maxPaperFills || remaining <= 0 {
			break
		}

		plan, err := deps.Engine.PlanExecution(ctx, opp, remaining)
		if err != nil {
			a.logger.WarnContext(ctx, "paper plan failed",
				slog.String("opportunity", opp.ID),
				slog.String("error", err.Error()))
			continue
		}
		fills++

		filled := plan.TotalCost
		if filled <= 0 {
			continue
		}
		remaining -= filled

		profit := filled * (opp.ProfitFraction - plan.EstimatedSlippage)
		outcome := domain.Outcome{
			ID:          uuid.NewString(),
			Kind:        opp.Kind,
			Symbol:      plan.Symbol,
			Profit:      profit,
			CapitalUsed: filled,
			RecordedAt:  time.Now(),
		}
		if err := deps.Recorder.RecordOutcome(ctx, outcome); err != nil {
			a.logger.WarnContext(ctx, "outcome recording failed",
				slog.String("opportunity", opp.ID),
				slog.String("error", err.Error()))
			continue
		}
		deps.Metrics.RecordOutcome(string(opp.Kind))

		a.logger.InfoContext(ctx, "paper fill",
			slog.String("opportunity", opp.ID),
			slog.String("kind", string(opp.Kind)),
			slog.Float64("capital_used", filled),
			slog.Float64("profit", profit),
			slog.Bool("partial", plan.Partial),
		)
	}
}
