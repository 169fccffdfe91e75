package keys

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/EternisAI/silo-activation/internal/actkey"
)

// Service issues activation keys and mirrors the latest key string per
// record in the Store. The store row is a cache: the key itself carries the
// signed truth, and every toggle validates the key before touching the row.
type Service struct {
	keychain *actkey.Keychain
	store    Store
}

func NewService(keychain *actkey.Keychain, store Store) *Service {
	return &Service{
		keychain: keychain,
		store:    store,
	}
}

// Generate issues a fresh key and stores its mirror row. The returned record
// includes the key string, which the caller must hand to the user; it is not
// recoverable later in any other way.
func (s *Service) Generate(ctx context.Context) (ActivationKey, error) {
	key, err := s.keychain.Issue()
	if err != nil {
		return ActivationKey{}, fmt.Errorf("issue activation key: %w", err)
	}

	// Decode the freshly issued key to obtain the exact stamped fields.
	rec, err := s.keychain.Validate(key)
	if err != nil {
		return ActivationKey{}, fmt.Errorf("validate issued key: %w", err)
	}

	stored, err := s.store.Insert(ctx, ActivationKey{
		Key:           key,
		CreatedAt:     rec.CreatedAt,
		ExpiresAt:     rec.ExpiresAt,
		AgentDeployed: rec.AgentDeployed,
	})
	if err != nil {
		return ActivationKey{}, fmt.Errorf("store activation key: %w", err)
	}

	slog.Info("Activation key issued", "id", stored.ID, "expires_at", stored.ExpiresAt)
	return stored, nil
}

// Deploy re-stamps the presented key with the deployment flag set and
// rewrites its mirror row. Unknown keys are ErrKeyNotFound; invalid or
// expired keys propagate the actkey error unchanged and leave the row alone.
func (s *Service) Deploy(ctx context.Context, presented string) (ActivationKey, error) {
	return s.toggle(ctx, presented, true)
}

// Stop is symmetric to Deploy with the flag cleared.
func (s *Service) Stop(ctx context.Context, presented string) (ActivationKey, error) {
	return s.toggle(ctx, presented, false)
}

func (s *Service) toggle(ctx context.Context, presented string, deployed bool) (ActivationKey, error) {
	stored, err := s.store.GetByKey(ctx, presented)
	if err != nil {
		return ActivationKey{}, err
	}

	var newKey string
	if deployed {
		newKey, err = s.keychain.Deploy(stored.Key)
	} else {
		newKey, err = s.keychain.Stop(stored.Key)
	}
	if err != nil {
		return ActivationKey{}, err
	}

	// Last writer wins on concurrent toggles of the same row; both outcomes
	// are valid keys and the row only mirrors whichever landed last.
	updated, err := s.store.ReplaceKey(ctx, stored.ID, newKey, deployed)
	if err != nil {
		return ActivationKey{}, fmt.Errorf("update activation key: %w", err)
	}

	slog.Info("Activation key re-stamped", "id", updated.ID, "agent_deployed", deployed)
	return updated, nil
}

// Inspect validates the presented key against the secret without consulting
// the store at all.
func (s *Service) Inspect(presented string) (actkey.Record, error) {
	return s.keychain.Validate(presented)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]ActivationKey, int64, error) {
	rows, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("Activation key record deleted", "id", id)
	return nil
}
