package keys

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and by deployments that
// have no Postgres at hand. Rows are kept by ID under an RWMutex.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]ActivationKey
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]ActivationKey)}
}

func (s *MemoryStore) Insert(_ context.Context, key ActivationKey) (ActivationKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.Key == key.Key {
			return ActivationKey{}, ErrKeyDuplicate
		}
	}

	key.ID = uuid.NewString()
	key.UpdatedAt = time.Now().UTC()
	s.rows[key.ID] = key
	return key, nil
}

func (s *MemoryStore) GetByKey(_ context.Context, fullKey string) (ActivationKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.rows {
		if row.Key == fullKey {
			return row, nil
		}
	}
	return ActivationKey{}, ErrKeyNotFound
}

func (s *MemoryStore) ReplaceKey(_ context.Context, id, newKey string, deployed bool) (ActivationKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return ActivationKey{}, ErrKeyNotFound
	}
	row.Key = newKey
	row.AgentDeployed = deployed
	row.UpdatedAt = time.Now().UTC()
	s.rows[id] = row
	return row, nil
}

func (s *MemoryStore) List(_ context.Context, limit, offset int) ([]ActivationKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]ActivationKey, 0, len(s.rows))
	for _, row := range s.rows {
		all = append(all, row)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		}
		return all[i].ID < all[j].ID
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.rows)), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[id]; !ok {
		return ErrKeyNotFound
	}
	delete(s.rows, id)
	return nil
}
