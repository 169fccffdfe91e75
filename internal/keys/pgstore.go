package keys

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const keyColumns = "id, full_key, created_at, expires_at, agent_deployed, updated_at"

// PGStore is the Postgres-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Insert(ctx context.Context, key ActivationKey) (ActivationKey, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO activation_keys (full_key, created_at, expires_at, agent_deployed)
		VALUES ($1, $2, $3, $4)
		RETURNING `+keyColumns,
		key.Key, key.CreatedAt.Unix(), key.ExpiresAt.Unix(), key.AgentDeployed)

	stored, err := scanKey(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ActivationKey{}, ErrKeyDuplicate
		}
		return ActivationKey{}, fmt.Errorf("insert activation key: %w", err)
	}
	return stored, nil
}

func (s *PGStore) GetByKey(ctx context.Context, fullKey string) (ActivationKey, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+keyColumns+` FROM activation_keys WHERE full_key = $1`, fullKey)

	stored, err := scanKey(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ActivationKey{}, ErrKeyNotFound
		}
		return ActivationKey{}, fmt.Errorf("get activation key: %w", err)
	}
	return stored, nil
}

func (s *PGStore) ReplaceKey(ctx context.Context, id, newKey string, deployed bool) (ActivationKey, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return ActivationKey{}, ErrKeyNotFound
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE activation_keys
		SET full_key = $2, agent_deployed = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+keyColumns,
		pgtype.UUID{Bytes: parsed, Valid: true}, newKey, deployed)

	stored, err := scanKey(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ActivationKey{}, ErrKeyNotFound
		}
		return ActivationKey{}, fmt.Errorf("replace activation key: %w", err)
	}
	return stored, nil
}

func (s *PGStore) List(ctx context.Context, limit, offset int) ([]ActivationKey, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+keyColumns+` FROM activation_keys
		ORDER BY updated_at DESC, id
		LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list activation keys: %w", err)
	}
	defer rows.Close()

	var result []ActivationKey
	for rows.Next() {
		stored, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activation key: %w", err)
		}
		result = append(result, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activation keys: %w", err)
	}
	return result, nil
}

func (s *PGStore) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM activation_keys`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count activation keys: %w", err)
	}
	return total, nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return ErrKeyNotFound
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM activation_keys WHERE id = $1`,
		pgtype.UUID{Bytes: parsed, Valid: true})
	if err != nil {
		return fmt.Errorf("delete activation key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func scanKey(row pgx.Row) (ActivationKey, error) {
	var (
		id        pgtype.UUID
		fullKey   string
		createdAt int64
		expiresAt int64
		deployed  bool
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &fullKey, &createdAt, &expiresAt, &deployed, &updatedAt); err != nil {
		return ActivationKey{}, err
	}
	return ActivationKey{
		ID:            uuidToString(id.Bytes),
		Key:           fullKey,
		CreatedAt:     time.Unix(createdAt, 0).UTC(),
		ExpiresAt:     time.Unix(expiresAt, 0).UTC(),
		AgentDeployed: deployed,
		UpdatedAt:     updatedAt.Time,
	}, nil
}

func uuidToString(id [16]byte) string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		id[0:4], id[4:6], id[6:8], id[8:10], id[10:16])
}
