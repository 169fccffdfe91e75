package auth

import (
	"context"
	"errors"
	"fmt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type RegisterResult struct {
	ID       string
	Username string
	Role     string
}

type Service struct {
	store  Store
	config JWTConfig
}

func NewService(store Store, config JWTConfig) *Service {
	return &Service{
		store:  store,
		config: config,
	}
}

func (s *Service) Register(ctx context.Context, username, password string) (RegisterResult, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("hash password: %w", err)
	}

	op, err := s.store.CreateOperator(ctx, username, hash, RoleOperator)
	if err != nil {
		if errors.Is(err, ErrUsernameExists) {
			return RegisterResult{}, ErrUsernameExists
		}
		return RegisterResult{}, fmt.Errorf("create operator: %w", err)
	}

	return RegisterResult{
		ID:       op.ID,
		Username: op.Username,
		Role:     op.Role,
	}, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	op, err := s.store.GetOperatorByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrOperatorNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("query operator: %w", err)
	}

	if !CheckPassword(password, op.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.config, op.ID, op.Username, op.Role)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}
