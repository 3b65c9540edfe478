package domain

import (
	"sort"
	"time"
)

// MarketView is the immutable per-cycle snapshot of everything the analyzers
// read: orderbooks, venue latency, health, and tier. The engine builds one
// view at cycle start and shares it read-only across concurrent analyzer
// tasks, so nothing downstream has to reason about mutation.
type MarketView struct {
	books  map[string]map[string]MarketSnapshot // venue -> symbol -> snapshot
	venues map[string]VenueInfo
	now    time.Time
	stale  time.Duration
}

// NewMarketView assembles a view from the given books and venue states.
// Snapshots older than stalenessBound as of now are dropped at construction.
func NewMarketView(now time.Time, stalenessBound time.Duration, venues []VenueInfo, books []MarketSnapshot) *MarketView {
	v := &MarketView{
		books:  make(map[string]map[string]MarketSnapshot),
		venues: make(map[string]VenueInfo, len(venues)),
		now:    now,
		stale:  stalenessBound,
	}
	for _, info := range venues {
		v.venues[info.ID] = info
	}
	for _, snap := range books {
		if snap.StaleAt(now, stalenessBound) {
			continue
		}
		bySymbol, ok := v.books[snap.Venue]
		if !ok {
			bySymbol = make(map[string]MarketSnapshot)
			v.books[snap.Venue] = bySymbol
		}
		bySymbol[snap.Symbol] = snap
	}
	return v
}

// Now is the cycle start time the view was built at.
func (v *MarketView) Now() time.Time { return v.now }

// Snapshot returns the book for venue+symbol, or false when absent.
func (v *MarketView) Snapshot(venue, symbol string) (MarketSnapshot, bool) {
	bySymbol, ok := v.books[venue]
	if !ok {
		return MarketSnapshot{}, false
	}
	snap, ok := bySymbol[symbol]
	return snap, ok
}

// Venue returns the observed state for a venue ID. Unknown venues report
// TierUnknown and unhealthy.
func (v *MarketView) Venue(id string) VenueInfo {
	if info, ok := v.venues[id]; ok {
		return info
	}
	return VenueInfo{ID: id}
}

// VenueIDs returns all venue IDs with at least one usable snapshot for the
// symbol, sorted for deterministic iteration.
func (v *MarketView) VenueIDs(symbol string) []string {
	var ids []string
	for venue, bySymbol := range v.books {
		if _, ok := bySymbol[symbol]; ok {
			ids = append(ids, venue)
		}
	}
	sort.Strings(ids)
	return ids
}

// HealthyVenueIDs returns sorted IDs of venues marked healthy, regardless of
// which symbols they currently quote.
func (v *MarketView) HealthyVenueIDs() []string {
	var ids []string
	for id, info := range v.venues {
		if info.Healthy {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
