package oracle

import "github.com/mae-kelly/arbitrage/internal/domain"

// FlatCostModel implements domain.TransferCostModel with a flat settlement
// fee plus a basis-point charge on the transferred amount. Moving funds
// within the same venue costs nothing.
type FlatCostModel struct {
	Flat float64 // quote currency per transfer
	Bps  float64 // basis points of the transferred amount
}

var _ domain.TransferCostModel = (*FlatCostModel)(nil)

func (m FlatCostModel) TransferCost(fromVenue, toVenue, token string, amount float64) float64 {
	if fromVenue == toVenue {
		return 0
	}
	return m.Flat + amount*m.Bps/10000
}
