package auth

import (
	"context"
	"errors"
	"time"
)

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

var (
	ErrUsernameExists   = errors.New("username already exists")
	ErrOperatorNotFound = errors.New("operator not found")
)

// Operator is an account allowed to mint and toggle activation keys.
type Operator struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type Store interface {
	CreateOperator(ctx context.Context, username, passwordHash, role string) (Operator, error)
	GetOperatorByUsername(ctx context.Context, username string) (Operator, error)
}
