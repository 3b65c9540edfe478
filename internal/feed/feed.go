// Package feed maintains live orderbook caches over per-venue WebSocket
// connections and exposes them as a snapshot source for the engine.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// latencyAlpha is the EWMA smoothing factor for observed feed latency.
const latencyAlpha = 0.2

// healthBound is how recently a venue must have delivered a message to be
// considered healthy.
const healthBound = 10 * time.Second

// VenueEndpoint names one venue gateway the feed connects to.
// ExpectedLatencyMs seeds the latency estimate until real messages arrive.
type VenueEndpoint struct {
	ID                string
	WSURL             string
	ExpectedLatencyMs float64
}

type venueState struct {
	latencyMs   float64
	lastMessage time.Time
}

// Feed implements domain.SnapshotSource over live WebSocket book streams. It
// keeps the most recent snapshot per venue and symbol and tracks per-venue
// latency and liveness.
type Feed struct {
	clients []*venueClient
	logger  *slog.Logger

	mu     sync.RWMutex
	books  map[string]domain.MarketSnapshot // key: venue|symbol
	venues map[string]*venueState
}

// New creates a Feed for the given venue endpoints and symbols. Connections
// are not opened until Start.
func New(endpoints []VenueEndpoint, symbols []string, logger *slog.Logger) *Feed {
	f := &Feed{
		logger: logger.With(slog.String("component", "feed")),
		books:  make(map[string]domain.MarketSnapshot),
		venues: make(map[string]*venueState, len(endpoints)),
	}
	for _, ep := range endpoints {
		f.venues[ep.ID] = &venueState{latencyMs: ep.ExpectedLatencyMs}
		f.clients = append(f.clients, newVenueClient(ep.ID, ep.WSURL, symbols, logger, f.onBook))
	}
	return f
}

var _ domain.SnapshotSource = (*Feed)(nil)

// Start opens all venue connections. A venue that fails its initial dial is
// left to its reconnect loop instead of failing the whole feed, but Start
// errors if no venue connects at all.
func (f *Feed) Start(ctx context.Context) error {
	connected := 0
	for _, c := range f.clients {
		if err := c.connect(ctx); err != nil {
			f.logger.Warn("initial connect failed, retrying in background",
				slog.String("venue", c.venue),
				slog.String("error", err.Error()))
			go c.reconnect()
			continue
		}
		connected++
	}
	if connected == 0 && len(f.clients) > 0 {
		return fmt.Errorf("feed: no venue connected")
	}
	return nil
}

// Close shuts down all venue connections.
func (f *Feed) Close() error {
	var firstErr error
	for _, c := range f.clients {
		if err := c.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// GetSnapshot returns the latest cached book for venue+symbol. Staleness is
// the caller's concern; the feed only reports what it last saw.
func (f *Feed) GetSnapshot(ctx context.Context, venue, symbol string) (domain.MarketSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	snap, ok := f.books[bookKey(venue, symbol)]
	if !ok {
		return domain.MarketSnapshot{}, fmt.Errorf("feed: %s %s: %w", venue, symbol, domain.ErrNoSnapshot)
	}
	return snap, nil
}

// GetLatency returns the smoothed message latency for a venue in
// milliseconds. Unknown venues report zero.
func (f *Feed) GetLatency(venue string) float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if st, ok := f.venues[venue]; ok {
		return st.latencyMs
	}
	return 0
}

// IsHealthy reports whether the venue has delivered a message recently.
func (f *Feed) IsHealthy(venue string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	st, ok := f.venues[venue]
	if !ok {
		return false
	}
	return time.Since(st.lastMessage) < healthBound
}

func (f *Feed) onBook(venue string, msg *bookMessage, receivedAt time.Time) {
	snap := msg.toSnapshot(venue, receivedAt)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.books[bookKey(venue, msg.Symbol)] = snap

	st, ok := f.venues[venue]
	if !ok {
		st = &venueState{}
		f.venues[venue] = st
	}
	st.lastMessage = receivedAt

	if msg.SentAt > 0 {
		observed := float64(receivedAt.UnixMilli() - msg.SentAt)
		if observed >= 0 {
			if st.latencyMs == 0 {
				st.latencyMs = observed
			} else {
				st.latencyMs = latencyAlpha*observed + (1-latencyAlpha)*st.latencyMs
			}
		}
	}
}

func bookKey(venue, symbol string) string {
	return venue + "|" + symbol
}
