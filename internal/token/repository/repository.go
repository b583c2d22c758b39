package repository

import (
	"context"
	"time"

	"authgate/internal/token/domain"
)

// Repository defines persistence for refresh tokens.
type Repository interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	GetByHashForUpdate(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	GetByID(ctx context.Context, id string) (*domain.RefreshToken, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAllByAccount(ctx context.Context, accountID string, at time.Time) error
}
