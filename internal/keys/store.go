package keys

import (
	"context"
	"errors"
)

var (
	ErrKeyNotFound  = errors.New("activation key not found")
	ErrKeyDuplicate = errors.New("activation key already stored")
)

// Store persists the latest issued key string per record.
type Store interface {
	Insert(ctx context.Context, key ActivationKey) (ActivationKey, error)
	GetByKey(ctx context.Context, fullKey string) (ActivationKey, error)
	ReplaceKey(ctx context.Context, id, newKey string, deployed bool) (ActivationKey, error)
	List(ctx context.Context, limit, offset int) ([]ActivationKey, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}
