// Package domain defines the core data model for the arbitrage engine and the
// collaborator interfaces it is implemented against.
package domain

import "time"

// PriceLevel is a single price+volume entry in an orderbook or a pool-implied
// quote. Both fields are non-negative.
type PriceLevel struct {
	Price  float64
	Volume float64
}

// MarketSnapshot is an orderbook snapshot for one symbol on one venue. Bids
// are sorted descending by price, asks ascending. Empty sides are valid and
// mean no resting liquidity.
type MarketSnapshot struct {
	Venue      string
	Symbol     string
	Bids       []PriceLevel
	Asks       []PriceLevel
	CapturedAt time.Time
}

// BestBid returns the top bid level, or false when the bid side is empty.
func (s MarketSnapshot) BestBid() (PriceLevel, bool) {
	if len(s.Bids) == 0 {
		return PriceLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the top ask level, or false when the ask side is empty.
func (s MarketSnapshot) BestAsk() (PriceLevel, bool) {
	if len(s.Asks) == 0 {
		return PriceLevel{}, false
	}
	return s.Asks[0], true
}

// MidPrice returns (bestBid + bestAsk) / 2. When only one side has liquidity
// it returns that side's best price; zero when the book is empty.
func (s MarketSnapshot) MidPrice() float64 {
	bid, hasBid := s.BestBid()
	ask, hasAsk := s.BestAsk()
	switch {
	case hasBid && hasAsk:
		return (bid.Price + ask.Price) / 2
	case hasBid:
		return bid.Price
	case hasAsk:
		return ask.Price
	default:
		return 0
	}
}

// StaleAt reports whether the snapshot is older than bound as of now.
// Consumers treat stale snapshots as absent.
func (s MarketSnapshot) StaleAt(now time.Time, bound time.Duration) bool {
	if bound <= 0 {
		return false
	}
	return now.Sub(s.CapturedAt) > bound
}

// Side selects bids or asks for the given order side: buys consume asks,
// sells consume bids.
func (s MarketSnapshot) Side(side OrderSide) []PriceLevel {
	if side == SideBuy {
		return s.Asks
	}
	return s.Bids
}
