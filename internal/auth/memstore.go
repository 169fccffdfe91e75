package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps operator accounts in process. Used by handler tests and
// the system test harness.
type MemoryStore struct {
	mu        sync.RWMutex
	operators map[string]Operator
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{operators: make(map[string]Operator)}
}

func (s *MemoryStore) CreateOperator(_ context.Context, username, passwordHash, role string) (Operator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.operators[username]; exists {
		return Operator{}, ErrUsernameExists
	}

	op := Operator{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	s.operators[username] = op
	return op, nil
}

func (s *MemoryStore) GetOperatorByUsername(_ context.Context, username string) (Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.operators[username]
	if !ok {
		return Operator{}, ErrOperatorNotFound
	}
	return op, nil
}
