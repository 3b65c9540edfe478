// Package config defines the top-level configuration for the arbitrage engine
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBD_* environment variables.
type Config struct {
	Venues   []VenueConfig  `toml:"venues"`
	Detector DetectorConfig `toml:"detector"`
	Sizing   SizingConfig   `toml:"sizing"`
	Router   RouterConfig   `toml:"router"`
	Oracle   OracleConfig   `toml:"oracle"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// VenueConfig describes one exchange venue monitored by the engine.
type VenueConfig struct {
	ID     string `toml:"id"`
	Tier   int    `toml:"tier"` // 1, 2, or 3; 0 or unset means unknown
	WSURL  string `toml:"ws_url"`
	APIURL string `toml:"api_url"`
}

// TriangleConfig is one 3-symbol cycle checked by the triangular analyzer,
// e.g. ("BTC/USDT", "ETH/USDT", "ETH/BTC").
type TriangleConfig struct {
	PairA string `toml:"pair_a"`
	PairB string `toml:"pair_b"`
	Cross string `toml:"cross"`
}

// DetectorConfig holds detection-cycle parameters shared by the analyzers and
// the scorer.
type DetectorConfig struct {
	Symbols        []string `toml:"symbols"`
	Interval       duration `toml:"interval"`
	StalenessBound duration `toml:"staleness_bound"`
	TopK           int      `toml:"top_k"`
	MaxConcurrency int      `toml:"max_concurrency"`

	// MinProfitFraction maps strategy kind name to the minimum profit
	// fraction an opportunity must clear, e.g. {spatial = 0.003}.
	MinProfitFraction map[string]float64 `toml:"min_profit_fraction"`

	// MinConfidence maps strategy kind name to the minimum analyzer
	// confidence; kinds absent from the map are not gated on confidence.
	MinConfidence map[string]float64 `toml:"min_confidence"`

	MajorSymbols []string         `toml:"major_symbols"`
	Triangles    []TriangleConfig `toml:"triangles"`

	// CrossVenueTokens are the tokens priced across chains by the oracle.
	CrossVenueTokens  []string `toml:"cross_venue_tokens"`
	EstablishedChains []string `toml:"established_chains"`

	// TierLatencyMs are hand-tuned per-tier latency expectations used as
	// configuration defaults, not invariants.
	TierLatencyMs map[string]float64 `toml:"tier_latency_ms"`
}

// SizingConfig holds Kelly position-sizing parameters.
type SizingConfig struct {
	Capital             float64            `toml:"capital"`
	MaxPositionFraction float64            `toml:"max_position_fraction"`
	KindDiscounts       map[string]float64 `toml:"kind_discounts"`
	DefaultKindDiscount float64            `toml:"default_kind_discount"`
	VolatilityFactor    float64            `toml:"volatility_factor"`
}

// RouterConfig holds order-routing parameters.
type RouterConfig struct {
	DepthLevels       int     `toml:"depth_levels"`
	MinSliceSize      float64 `toml:"min_slice_size"`
	VenueVolumeCap    float64 `toml:"venue_volume_cap"`  // fraction of venue depth usable
	ConcentrationCap  float64 `toml:"concentration_cap"` // max fraction of plan on one venue
	MaxLatencyPenalty float64 `toml:"max_latency_penalty"`
	MaxVolumeBonus    float64 `toml:"max_volume_bonus"`
}

// ChainConfig describes one blockchain the cross-venue oracle reads.
type ChainConfig struct {
	Name   string `toml:"name"`
	RPCURL string `toml:"rpc_url"`
	// Pairs maps token symbol to the address of a token/stable AMM pair
	// contract used as the price reference on this chain.
	Pairs map[string]string `toml:"pairs"`
	// TokenIsToken0 records whether the token is token0 in the pair.
	TokenIsToken0 map[string]bool `toml:"token_is_token0"`
}

// OracleConfig holds cross-venue price-oracle parameters.
type OracleConfig struct {
	Enabled       bool          `toml:"enabled"`
	Chains        []ChainConfig `toml:"chains"`
	// TransferCostFlat and TransferCostBps parameterize the default
	// settlement cost model.
	TransferCostFlat float64 `toml:"transfer_cost_flat"`
	TransferCostBps  float64 `toml:"transfer_cost_bps"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Database     string `toml:"database"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"ssl_mode"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// S3Config holds S3-compatible object storage parameters for cycle archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds the ops HTTP server parameters (/healthz, /metrics).
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Validate checks the configuration for inconsistencies that would prevent the
// engine from operating. It returns the first problem found.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "paper", "detect":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}
	if len(c.Venues) < 2 {
		return fmt.Errorf("config: at least 2 venues required, got %d", len(c.Venues))
	}
	seen := make(map[string]bool, len(c.Venues))
	for _, v := range c.Venues {
		if v.ID == "" {
			return fmt.Errorf("config: venue with empty id")
		}
		if seen[v.ID] {
			return fmt.Errorf("config: duplicate venue id %q", v.ID)
		}
		seen[v.ID] = true
		if v.Tier < 0 || v.Tier > 3 {
			return fmt.Errorf("config: venue %s: tier must be 0-3, got %d", v.ID, v.Tier)
		}
	}
	if len(c.Detector.Symbols) == 0 {
		return fmt.Errorf("config: detector.symbols must not be empty")
	}
	for kind, frac := range c.Detector.MinProfitFraction {
		if frac < 0 {
			return fmt.Errorf("config: min_profit_fraction[%s] must be >= 0, got %g", kind, frac)
		}
	}
	if c.Detector.StalenessBound.Duration <= 0 {
		return fmt.Errorf("config: detector.staleness_bound must be positive")
	}
	if c.Detector.TopK <= 0 {
		return fmt.Errorf("config: detector.top_k must be positive")
	}
	if c.Sizing.Capital <= 0 {
		return fmt.Errorf("config: sizing.capital must be positive")
	}
	if c.Sizing.MaxPositionFraction <= 0 || c.Sizing.MaxPositionFraction > 1 {
		return fmt.Errorf("config: sizing.max_position_fraction must be in (0, 1]")
	}
	if c.Sizing.VolatilityFactor <= 0 || c.Sizing.VolatilityFactor > 1 {
		return fmt.Errorf("config: sizing.volatility_factor must be in (0, 1]")
	}
	if c.Router.MinSliceSize < 0 {
		return fmt.Errorf("config: router.min_slice_size must be >= 0")
	}
	if c.Router.VenueVolumeCap <= 0 || c.Router.VenueVolumeCap > 1 {
		return fmt.Errorf("config: router.venue_volume_cap must be in (0, 1]")
	}
	if c.Router.ConcentrationCap <= 0 || c.Router.ConcentrationCap > 1 {
		return fmt.Errorf("config: router.concentration_cap must be in (0, 1]")
	}
	if c.Oracle.Enabled && len(c.Oracle.Chains) < 2 {
		return fmt.Errorf("config: oracle requires at least 2 chains when enabled")
	}
	return nil
}
