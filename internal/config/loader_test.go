package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
mode = "detect"
log_level = "debug"

[[venues]]
id = "binance"
tier = 1
ws_url = "wss://stream.binance.test/ws"

[[venues]]
id = "kraken"
tier = 2
ws_url = "wss://ws.kraken.test"

[detector]
symbols = ["BTC/USDT", "ETH/USDT"]
interval = "2s"
staleness_bound = "8s"
top_k = 10

[detector.min_profit_fraction]
spatial = 0.004

[sizing]
capital = 50000.0

[router]
concentration_cap = 0.5
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, "detect", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)

	require.Len(t, cfg.Venues, 2)
	assert.Equal(t, "binance", cfg.Venues[0].ID)
	assert.Equal(t, 1, cfg.Venues[0].Tier)

	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, cfg.Detector.Symbols)
	assert.Equal(t, 2*time.Second, cfg.Detector.Interval.Duration)
	assert.Equal(t, 8*time.Second, cfg.Detector.StalenessBound.Duration)
	assert.Equal(t, 10, cfg.Detector.TopK)

	// File values override defaults; untouched defaults survive.
	assert.Equal(t, 0.004, cfg.Detector.MinProfitFraction["spatial"])
	assert.Equal(t, 50000.0, cfg.Sizing.Capital)
	assert.Equal(t, 0.02, cfg.Sizing.MaxPositionFraction)
	assert.Equal(t, 0.5, cfg.Router.ConcentrationCap)
	assert.Equal(t, 0.8, cfg.Router.VenueVolumeCap)

	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ARBD_MODE", "paper")
	t.Setenv("ARBD_SIZING_CAPITAL", "25000")
	t.Setenv("ARBD_DETECTOR_INTERVAL", "500ms")
	t.Setenv("ARBD_DETECTOR_SYMBOLS", "SOL/USDT, DOT/USDT")
	t.Setenv("ARBD_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("ARBD_S3_ENABLED", "true")

	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, "paper", cfg.Mode)
	assert.Equal(t, 25000.0, cfg.Sizing.Capital)
	assert.Equal(t, 500*time.Millisecond, cfg.Detector.Interval.Duration)
	assert.Equal(t, []string{"SOL/USDT", "DOT/USDT"}, cfg.Detector.Symbols)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.True(t, cfg.S3.Enabled)
}

func TestLoad_MalformedEnvValueIsIgnored(t *testing.T) {
	t.Setenv("ARBD_SIZING_CAPITAL", "not-a-number")
	t.Setenv("ARBD_DETECTOR_INTERVAL", "soon")

	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, 50000.0, cfg.Sizing.Capital)
	assert.Equal(t, 2*time.Second, cfg.Detector.Interval.Duration)
}

func TestLoad_BadDurationStringFails(t *testing.T) {
	bad := `
[[venues]]
id = "binance"

[detector]
interval = "whenever"
`
	_, err := Load(writeConfig(t, bad))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, sampleTOML))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "unsupported mode",
			mutate:  func(c *Config) { c.Mode = "live" },
			wantErr: "unsupported mode",
		},
		{
			name:    "too few venues",
			mutate:  func(c *Config) { c.Venues = c.Venues[:1] },
			wantErr: "at least 2 venues",
		},
		{
			name:    "duplicate venue id",
			mutate:  func(c *Config) { c.Venues[1].ID = c.Venues[0].ID },
			wantErr: "duplicate venue id",
		},
		{
			name:    "tier out of range",
			mutate:  func(c *Config) { c.Venues[0].Tier = 4 },
			wantErr: "tier must be 0-3",
		},
		{
			name:   "tier zero means unknown",
			mutate: func(c *Config) { c.Venues[0].Tier = 0 },
		},
		{
			name:    "no symbols",
			mutate:  func(c *Config) { c.Detector.Symbols = nil },
			wantErr: "symbols must not be empty",
		},
		{
			name:    "negative min profit",
			mutate:  func(c *Config) { c.Detector.MinProfitFraction["spatial"] = -0.1 },
			wantErr: "min_profit_fraction",
		},
		{
			name:    "non-positive capital",
			mutate:  func(c *Config) { c.Sizing.Capital = 0 },
			wantErr: "capital must be positive",
		},
		{
			name:    "position fraction above one",
			mutate:  func(c *Config) { c.Sizing.MaxPositionFraction = 1.5 },
			wantErr: "max_position_fraction",
		},
		{
			name:    "oracle enabled with one chain",
			mutate:  func(c *Config) { c.Oracle.Enabled = true; c.Oracle.Chains = []ChainConfig{{Name: "ethereum"}} },
			wantErr: "at least 2 chains",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
