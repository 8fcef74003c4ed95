// internal/storage/memory/hints.go
package memory

import (
	"context"
	"sync"

	"github.com/rovshanmuradov/solana-portfolio/internal/storage"
)

// HintStore is an in-process storage.HintStore used when no Redis address is
// configured and in tests. Entries live for the process lifetime; overwrite
// on the next enrichment is the only invalidation.
type HintStore struct {
	mu    sync.RWMutex
	hints map[string]storage.Hint
}

func NewHintStore() *HintStore {
	return &HintStore{hints: make(map[string]storage.Hint)}
}

func (s *HintStore) Get(_ context.Context, mint string) (storage.Hint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hint, ok := s.hints[mint]
	return hint, ok, nil
}

func (s *HintStore) Put(_ context.Context, mint string, hint storage.Hint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hints[mint] = hint
	return nil
}
