package oracle

import (
	"context"
	"sync"

	"swapPay/internal/model"
)

// Store holds one price slot per asset.
type Store interface {
	Get(ctx context.Context, asset string) (model.PriceCache, bool, error)
	Set(ctx context.Context, entry model.PriceCache) error
}

// MemoryStore keeps slots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string]model.PriceCache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]model.PriceCache)}
}

func (s *MemoryStore) Get(_ context.Context, asset string) (model.PriceCache, bool, error) {
	s.mu.RLock()
	entry, ok := s.slots[asset]
	s.mu.RUnlock()
	return entry, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, entry model.PriceCache) error {
	s.mu.Lock()
	s.slots[entry.Asset] = entry
	s.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
