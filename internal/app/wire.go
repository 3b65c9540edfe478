package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mae-kelly/arbitrage/internal/analyzer"
	s3blob "github.com/mae-kelly/arbitrage/internal/blob/s3"
	"github.com/mae-kelly/arbitrage/internal/cache/redis"
	"github.com/mae-kelly/arbitrage/internal/config"
	"github.com/mae-kelly/arbitrage/internal/domain"
	"github.com/mae-kelly/arbitrage/internal/engine"
	"github.com/mae-kelly/arbitrage/internal/feed"
	"github.com/mae-kelly/arbitrage/internal/metrics"
	"github.com/mae-kelly/arbitrage/internal/oracle"
	"github.com/mae-kelly/arbitrage/internal/router"
	"github.com/mae-kelly/arbitrage/internal/scorer"
	"github.com/mae-kelly/arbitrage/internal/sizing"
	"github.com/mae-kelly/arbitrage/internal/stats"
	"github.com/mae-kelly/arbitrage/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Feed     *feed.Feed
	Engine   *engine.Engine
	Venues   []domain.VenueInfo
	Metrics  *metrics.Metrics
	Recorder domain.OutcomeRecorder
	Archiver domain.SignalArchiver
}

// needsPostgres reports whether the mode records outcomes durably. Pure
// detection keeps statistics in process memory.
func needsPostgres(mode string) bool {
	return mode == "paper"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Metrics: metrics.New()}

	for _, v := range cfg.Venues {
		deps.Venues = append(deps.Venues, domain.VenueInfo{
			ID:   v.ID,
			Tier: domain.VenueTier(v.Tier),
		})
	}

	// --- Market data feed ---
	endpoints := make([]feed.VenueEndpoint, 0, len(cfg.Venues))
	for _, v := range cfg.Venues {
		endpoints = append(endpoints, feed.VenueEndpoint{
			ID:                v.ID,
			WSURL:             v.WSURL,
			ExpectedLatencyMs: tierLatency(cfg, v.Tier),
		})
	}
	deps.Feed = feed.New(endpoints, feedSymbols(cfg), logger)

	// --- Statistics store ---
	var statsStore domain.StatsStore
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}

		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		outcomes := postgres.NewOutcomeStore(pgClient.Pool())
		locks := redis.NewLockManager(redisClient)
		redisStats := stats.NewRedisStore(redisClient, outcomes, locks, logger)
		statsStore = redisStats
		deps.Recorder = redisStats
	} else {
		memStore := stats.NewMemoryStore()
		statsStore = memStore
		deps.Recorder = memStore
	}

	// --- Analyzers ---
	registry := analyzer.NewRegistry()
	registry.Register(string(domain.StrategySpatial), analyzer.NewSpatial(analyzer.SpatialConfig{
		MinProfitFraction: cfg.Detector.MinProfitFraction["spatial"],
		MinConfidence:     cfg.Detector.MinConfidence["spatial"],
		MajorSymbols:      cfg.Detector.MajorSymbols,
	}, logger))
	registry.Register(string(domain.StrategyTriangular), analyzer.NewTriangular(analyzer.TriangularConfig{
		MinProfitFraction: cfg.Detector.MinProfitFraction["triangular"],
		MinConfidence:     cfg.Detector.MinConfidence["triangular"],
		Triangles:         triangles(cfg),
		MajorSymbols:      cfg.Detector.MajorSymbols,
	}, logger))

	if cfg.Oracle.Enabled {
		chainCfgs := make([]oracle.ChainConfig, 0, len(cfg.Oracle.Chains))
		for _, ch := range cfg.Oracle.Chains {
			chainCfgs = append(chainCfgs, oracle.ChainConfig{
				Name:          ch.Name,
				RPCURL:        ch.RPCURL,
				Pairs:         ch.Pairs,
				TokenIsToken0: ch.TokenIsToken0,
			})
		}
		ammOracle, err := oracle.NewAMMOracle(ctx, chainCfgs, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: oracle: %w", err)
		}
		closers = append(closers, ammOracle.Close)

		costs := oracle.FlatCostModel{
			Flat: cfg.Oracle.TransferCostFlat,
			Bps:  cfg.Oracle.TransferCostBps,
		}
		registry.Register(string(domain.StrategyCrossVenue), analyzer.NewCrossVenue(analyzer.CrossVenueConfig{
			Tokens:            cfg.Detector.CrossVenueTokens,
			Chains:            ammOracle.Chains(),
			EstablishedChains: cfg.Detector.EstablishedChains,
			MinProfitFraction: cfg.Detector.MinProfitFraction["cross_venue"],
			MinConfidence:     cfg.Detector.MinConfidence["cross_venue"],
		}, ammOracle, costs, logger))
	}

	// --- Sizing, routing, scoring ---
	sizer := sizing.NewSizer(sizing.SizerConfig{
		MaxPositionFraction: cfg.Sizing.MaxPositionFraction,
		KindDiscounts:       kindDiscounts(cfg),
		DefaultKindDiscount: cfg.Sizing.DefaultKindDiscount,
	}, statsStore, sizing.StaticVolatility{Factor: cfg.Sizing.VolatilityFactor}, logger)

	rt := router.New(router.Config{
		DepthLevels:       cfg.Router.DepthLevels,
		MinSliceSize:      cfg.Router.MinSliceSize,
		VenueVolumeCap:    cfg.Router.VenueVolumeCap,
		ConcentrationCap:  cfg.Router.ConcentrationCap,
		MaxLatencyPenalty: cfg.Router.MaxLatencyPenalty,
		MaxVolumeBonus:    cfg.Router.MaxVolumeBonus,
	}, logger)

	deps.Engine = engine.New(engine.Config{
		Venues:         deps.Venues,
		StalenessBound: cfg.Detector.StalenessBound.Duration,
		MaxConcurrency: cfg.Detector.MaxConcurrency,
	}, deps.Feed, registry, scorer.New(cfg.Detector.TopK), sizer, rt, deps.Metrics, logger)

	// --- Cycle archival ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         true,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3Client, "")
	}

	return deps, cleanup, nil
}

// feedSymbols collects every symbol the analyzers will look at, including
// triangle legs that are not in the detector's spatial symbol list.
func feedSymbols(cfg *config.Config) []string {
	seen := make(map[string]bool)
	var symbols []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			symbols = append(symbols, s)
		}
	}
	for _, s := range cfg.Detector.Symbols {
		add(s)
	}
	for _, t := range cfg.Detector.Triangles {
		add(t.PairA)
		add(t.PairB)
		add(t.Cross)
	}
	return symbols
}

// tierLatency returns the configured latency expectation for a venue tier,
// used to seed the feed's estimate before real messages arrive.
func tierLatency(cfg *config.Config, tier int) float64 {
	switch domain.VenueTier(tier) {
	case domain.Tier1:
		return cfg.Detector.TierLatencyMs["tier1"]
	case domain.Tier2:
		return cfg.Detector.TierLatencyMs["tier2"]
	default:
		return cfg.Detector.TierLatencyMs["tier3"]
	}
}

func triangles(cfg *config.Config) []analyzer.Triangle {
	out := make([]analyzer.Triangle, 0, len(cfg.Detector.Triangles))
	for _, t := range cfg.Detector.Triangles {
		out = append(out, analyzer.Triangle{PairA: t.PairA, PairB: t.PairB, Cross: t.Cross})
	}
	return out
}

func kindDiscounts(cfg *config.Config) map[domain.StrategyKind]float64 {
	out := make(map[domain.StrategyKind]float64, len(cfg.Sizing.KindDiscounts))
	for kind, d := range cfg.Sizing.KindDiscounts {
		out[domain.StrategyKind(kind)] = d
	}
	return out
}
