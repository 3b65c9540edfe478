package stats

import (
	"context"
	"sync"

	"github.com/mae-kelly/arbitrage/internal/domain"
)

// maxHistory bounds the number of retained outcomes per kind; older outcomes
// fall off so statistics track recent performance.
const maxHistory = 1000

// MemoryStore is an in-process StatsStore and outcome recorder used in paper
// mode and tests. All access is serialized per strategy kind, so a sizing
// read never observes a half-applied outcome.
type MemoryStore struct {
	mu       sync.Mutex
	outcomes map[domain.StrategyKind][]domain.Outcome
	cache    map[domain.StrategyKind]domain.StrategyStats
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		outcomes: make(map[domain.StrategyKind][]domain.Outcome),
		cache:    make(map[domain.StrategyKind]domain.StrategyStats),
	}
}

// Get returns the statistics for the kind, computing and caching them on
// first use. Insufficient history reports domain.ErrUnknownStats.
func (s *MemoryStore) Get(_ context.Context, kind domain.StrategyKind) (domain.StrategyStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache[kind]; ok {
		return cached, nil
	}
	computed, err := Compute(s.outcomes[kind])
	if err != nil {
		return domain.StrategyStats{}, err
	}
	s.cache[kind] = computed
	return computed, nil
}

// Invalidate evicts any cached statistics for the kind.
func (s *MemoryStore) Invalidate(_ context.Context, kind domain.StrategyKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, kind)
	return nil
}

// RecordOutcome appends an outcome and evicts the kind's cached statistics
// in the same critical section, so a concurrent Get either sees the old
// cache or recomputes with the new outcome included.
func (s *MemoryStore) RecordOutcome(_ context.Context, outcome domain.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.outcomes[outcome.Kind], outcome)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	s.outcomes[outcome.Kind] = history
	delete(s.cache, outcome.Kind)
	return nil
}

// Compile-time interface checks.
var (
	_ domain.StatsStore      = (*MemoryStore)(nil)
	_ domain.OutcomeRecorder = (*MemoryStore)(nil)
)
