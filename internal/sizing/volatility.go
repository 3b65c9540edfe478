package sizing

import (
	"context"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// StaticVolatility is a fixed-factor volatility source, configured once at
// startup. A regime-aware source can replace it without touching the sizer.
type StaticVolatility struct {
	Factor float64
}

var _ domain.VolatilitySource = StaticVolatility{}

func (v StaticVolatility) CurrentFactor(ctx context.Context) float64 {
	if v.Factor <= 0 || v.Factor > 1 {
		return 1
	}
	return v.Factor
}
