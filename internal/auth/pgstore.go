package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres-backed operator Store.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) CreateOperator(ctx context.Context, username, passwordHash, role string) (Operator, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO operators (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, username, password_hash, role, created_at`,
		username, passwordHash, role)

	op, err := scanOperator(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Operator{}, ErrUsernameExists
		}
		return Operator{}, fmt.Errorf("create operator: %w", err)
	}
	return op, nil
}

func (s *PGStore) GetOperatorByUsername(ctx context.Context, username string) (Operator, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM operators WHERE username = $1`, username)

	op, err := scanOperator(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Operator{}, ErrOperatorNotFound
		}
		return Operator{}, fmt.Errorf("get operator: %w", err)
	}
	return op, nil
}

func scanOperator(row pgx.Row) (Operator, error) {
	var (
		id        pgtype.UUID
		username  string
		hash      string
		role      string
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &username, &hash, &role, &createdAt); err != nil {
		return Operator{}, err
	}
	return Operator{
		ID:           uuidToString(id.Bytes),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    createdAt.Time,
	}, nil
}

func uuidToString(id [16]byte) string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		id[0:4], id[4:6], id[6:8], id[8:10], id[10:16])
}
