package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlatCostModel(t *testing.T) {
	model := FlatCostModel{Flat: 15, Bps: 8}

	assert.Equal(t, 0.0, model.TransferCost("binance", "binance", "WETH", 10_000))

	// 15 flat + 10000 * 8bps = 23.
	assert.InDelta(t, 23.0, model.TransferCost("binance", "uniswap", "WETH", 10_000), 1e-9)

	// Zero amount still pays the flat settlement fee.
	assert.InDelta(t, 15.0, model.TransferCost("binance", "uniswap", "WETH", 0), 1e-9)
}
