// Package allowlist holds the set of contract accounts whose events are
// trusted. The set is read by the stream consumer on every outcome and
// written by the admin endpoint.
package allowlist

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"fluxCapacitor/internal/storage"
)

// Set is the in-memory allow-list mirrored to a persistent store.
//
// mu guards ids and is only held for the map access itself. addMu
// serializes the store check-then-insert of Add so concurrent adds of the
// same account persist a single record; Contains never waits on it.
type Set struct {
	store  storage.AllowListStore
	logger *zap.Logger

	mu  sync.RWMutex
	ids map[string]struct{}

	addMu sync.Mutex
}

// New builds a Set pre-seeded with seeds.
func New(store storage.AllowListStore, logger *zap.Logger, seeds ...string) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Set{
		store:  store,
		logger: logger,
		ids:    make(map[string]struct{}, len(seeds)),
	}
	for _, id := range seeds {
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}
	return s
}

// Load merges every persisted account into memory.
func (s *Set) Load(ctx context.Context) error {
	ids, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load allow-list: %w", err)
	}

	s.mu.Lock()
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	s.mu.Unlock()

	s.logger.Info("allow-list loaded", zap.Int("persisted", len(ids)), zap.Strings("accounts", s.Snapshot()))
	return nil
}

// Contains reports whether accountID is trusted.
func (s *Set) Contains(accountID string) bool {
	s.mu.RLock()
	_, ok := s.ids[accountID]
	s.mu.RUnlock()
	return ok
}

// Add persists accountID unless the store already has it, then makes it
// visible to Contains. It reports whether a new record was persisted.
func (s *Set) Add(ctx context.Context, accountID string) (bool, error) {
	if accountID == "" {
		return false, fmt.Errorf("account id is empty")
	}

	s.addMu.Lock()
	defer s.addMu.Unlock()

	exists, err := s.store.Exists(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("check account %s: %w", accountID, err)
	}
	if !exists {
		if err := s.store.Insert(ctx, accountID); err != nil {
			return false, fmt.Errorf("persist account %s: %w", accountID, err)
		}
	}

	s.mu.Lock()
	s.ids[accountID] = struct{}{}
	s.mu.Unlock()

	if !exists {
		s.logger.Info("account allowed", zap.String("account_id", accountID))
	}
	return !exists, nil
}

// Len returns the number of trusted accounts.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Snapshot returns the trusted accounts in sorted order.
func (s *Set) Snapshot() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids
}
