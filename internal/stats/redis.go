package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mae-kelly/arbitrage/internal/cache/redis"
	"github.com/mae-kelly/arbitrage/internal/domain"
)

// cacheTTL bounds how long derived statistics live without invalidation.
const cacheTTL = time.Hour

// RedisStore is a StatsStore that caches statistics derived from the
// persistent outcome ledger in a Redis hash per strategy kind
// (strategy_stats:<kind>). Recording an outcome inserts into the ledger and
// deletes the hash, forcing recomputation on the next Get.
//
// The read-recompute-invalidate sequence is serialized per kind: a striped
// in-process mutex covers goroutines in this process, and a Redis lock
// covers concurrent writers in other processes.
type RedisStore struct {
	rdb      *goredis.Client
	outcomes domain.OutcomeStore
	locks    domain.LockManager
	logger   *slog.Logger

	mu    sync.Mutex
	kinds map[domain.StrategyKind]*sync.Mutex
}

// NewRedisStore creates a RedisStore over the given client and ledger.
func NewRedisStore(client *redis.Client, outcomes domain.OutcomeStore, locks domain.LockManager, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		rdb:      client.Underlying(),
		outcomes: outcomes,
		locks:    locks,
		logger:   logger.With(slog.String("component", "stats_store")),
		kinds:    make(map[domain.StrategyKind]*sync.Mutex),
	}
}

func statsKey(kind domain.StrategyKind) string {
	return "strategy_stats:" + string(kind)
}

func (s *RedisStore) kindMu(kind domain.StrategyKind) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.kinds[kind]
	if !ok {
		mu = &sync.Mutex{}
		s.kinds[kind] = mu
	}
	return mu
}

// Get returns the kind's statistics, recomputing from the ledger and
// refreshing the cache on a miss.
func (s *RedisStore) Get(ctx context.Context, kind domain.StrategyKind) (domain.StrategyStats, error) {
	mu := s.kindMu(kind)
	mu.Lock()
	defer mu.Unlock()

	cached, err := s.readCache(ctx, kind)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, goredis.Nil) {
		s.logger.Warn("stats cache read failed, recomputing",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
	}

	outcomes, err := s.outcomes.ListByKind(ctx, kind, maxHistory)
	if err != nil {
		return domain.StrategyStats{}, fmt.Errorf("stats: list outcomes for %s: %w", kind, err)
	}
	computed, err := Compute(outcomes)
	if err != nil {
		return domain.StrategyStats{}, err
	}

	s.writeCache(ctx, kind, computed)
	return computed, nil
}

// Invalidate evicts the kind's cached statistics.
func (s *RedisStore) Invalidate(ctx context.Context, kind domain.StrategyKind) error {
	mu := s.kindMu(kind)
	mu.Lock()
	defer mu.Unlock()

	if err := s.rdb.Del(ctx, statsKey(kind)).Err(); err != nil {
		return fmt.Errorf("stats: invalidate %s: %w", kind, err)
	}
	return nil
}

// RecordOutcome persists the outcome and evicts the kind's cached statistics
// under the kind's lock, preventing a lost update when a sizing read and a
// new outcome interleave.
func (s *RedisStore) RecordOutcome(ctx context.Context, outcome domain.Outcome) error {
	mu := s.kindMu(outcome.Kind)
	mu.Lock()
	defer mu.Unlock()

	if err := s.outcomes.Insert(ctx, outcome); err != nil {
		return fmt.Errorf("stats: insert outcome: %w", err)
	}
	if err := s.rdb.Del(ctx, statsKey(outcome.Kind)).Err(); err != nil {
		return fmt.Errorf("stats: invalidate %s after record: %w", outcome.Kind, err)
	}
	return nil
}

func (s *RedisStore) readCache(ctx context.Context, kind domain.StrategyKind) (domain.StrategyStats, error) {
	fields, err := s.rdb.HGetAll(ctx, statsKey(kind)).Result()
	if err != nil {
		return domain.StrategyStats{}, err
	}
	if len(fields) == 0 {
		return domain.StrategyStats{}, goredis.Nil
	}
	parse := func(name string) float64 {
		f, _ := strconv.ParseFloat(fields[name], 64)
		return f
	}
	samples, _ := strconv.Atoi(fields["samples"])
	if samples < domain.MinStatsSamples {
		return domain.StrategyStats{}, goredis.Nil
	}
	return domain.StrategyStats{
		WinRate: parse("win_rate"),
		AvgWin:  parse("avg_win"),
		AvgLoss: parse("avg_loss"),
		Samples: samples,
	}, nil
}

// writeCache refreshes the Redis hash under a cross-process lock. Failing to
// cache is not an error for the caller: the computed value is still correct.
func (s *RedisStore) writeCache(ctx context.Context, kind domain.StrategyKind, stats domain.StrategyStats) {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, statsKey(kind), 10*time.Second)
		if err != nil {
			if !errors.Is(err, domain.ErrLockHeld) {
				s.logger.Warn("stats cache lock failed",
					slog.String("kind", string(kind)),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		defer unlock()
	}

	key := statsKey(kind)
	err := s.rdb.HSet(ctx, key, map[string]any{
		"win_rate": stats.WinRate,
		"avg_win":  stats.AvgWin,
		"avg_loss": stats.AvgLoss,
		"samples":  stats.Samples,
	}).Err()
	if err == nil {
		err = s.rdb.Expire(ctx, key, cacheTTL).Err()
	}
	if err != nil {
		s.logger.Warn("stats cache write failed",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
	}
}

// Compile-time interface checks.
var (
	_ domain.StatsStore      = (*RedisStore)(nil)
	_ domain.OutcomeRecorder = (*RedisStore)(nil)
)
