package config

import "time"

// Defaults returns the built-in configuration. The numeric thresholds here
// (tier latencies, strategy discounts, minimum profit fractions) are
// hand-tuned operating points carried over from production tuning; they are
// defaults, not contracts, and every one can be overridden in TOML.
func Defaults() Config {
	return Config{
		Mode:     "paper",
		LogLevel: "info",
		Detector: DetectorConfig{
			Symbols:        []string{"BTC/USDT", "ETH/USDT", "BNB/USDT"},
			Interval:       duration{5 * time.Second},
			StalenessBound: duration{10 * time.Second},
			TopK:           20,
			MaxConcurrency: 8,
			MinProfitFraction: map[string]float64{
				"spatial":     0.003,
				"triangular":  0.005,
				"cross_venue": 0.01,
			},
			MinConfidence: map[string]float64{
				"spatial":     0.6,
				"triangular":  0.6,
				"cross_venue": 0.3,
			},
			MajorSymbols: []string{
				"BTC/USDT", "ETH/USDT", "BNB/USDT",
				"ETH/BTC", "BNB/BTC", "BNB/ETH",
			},
			Triangles: []TriangleConfig{
				{PairA: "BTC/USDT", PairB: "ETH/USDT", Cross: "ETH/BTC"},
				{PairA: "BTC/USDT", PairB: "BNB/USDT", Cross: "BNB/BTC"},
				{PairA: "ETH/USDT", PairB: "BNB/USDT", Cross: "BNB/ETH"},
			},
			CrossVenueTokens:  []string{"WETH", "USDT", "USDC"},
			EstablishedChains: []string{"ethereum", "bsc", "polygon"},
			TierLatencyMs: map[string]float64{
				"tier1": 50,
				"tier2": 100,
				"tier3": 200,
			},
		},
		Sizing: SizingConfig{
			Capital:             10_000,
			MaxPositionFraction: 0.02,
			KindDiscounts: map[string]float64{
				"spatial":     0.8,
				"triangular":  0.7,
				"cross_venue": 0.6,
			},
			DefaultKindDiscount: 0.7,
			VolatilityFactor:    0.9,
		},
		Router: RouterConfig{
			DepthLevels:       10,
			MinSliceSize:      0.01,
			VenueVolumeCap:    0.8,
			ConcentrationCap:  0.4,
			MaxLatencyPenalty: 0.2,
			MaxVolumeBonus:    0.2,
		},
		Oracle: OracleConfig{
			TransferCostFlat: 15,
			TransferCostBps:  8,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Postgres: PostgresConfig{
			Host:         "localhost",
			Port:         5432,
			SSLMode:      "disable",
			PoolMaxConns: 8,
			PoolMinConns: 1,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}
