package feed

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// bookMessage is the shared wire format the venue gateways publish: a full
// two-sided book with string-encoded levels and a millisecond send timestamp.
type bookMessage struct {
	Type   string      `json:"type"`
	Symbol string      `json:"symbol"`
	Bids   [][2]string `json:"bids"` // [price, volume], best first
	Asks   [][2]string `json:"asks"`
	SentAt int64       `json:"ts"`
}

// subscribeCommand asks a venue gateway to stream books for the symbols.
type subscribeCommand struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

func (c subscribeCommand) encode() ([]byte, error) {
	return json.Marshal(c)
}

// toSnapshot converts a wire book into a domain snapshot. Levels that fail to
// parse are dropped rather than poisoning the book.
func (m *bookMessage) toSnapshot(venue string, capturedAt time.Time) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Venue:      venue,
		Symbol:     m.Symbol,
		Bids:       parseLevels(m.Bids),
		Asks:       parseLevels(m.Asks),
		CapturedAt: capturedAt,
	}
}

func parseLevels(raw [][2]string) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, lv := range raw {
		price, err := strconv.ParseFloat(lv[0], 64)
		if err != nil || price <= 0 {
			continue
		}
		volume, err := strconv.ParseFloat(lv[1], 64)
		if err != nil || volume < 0 {
			continue
		}
		levels = append(levels, domain.PriceLevel{Price: price, Volume: volume})
	}
	return levels
}
