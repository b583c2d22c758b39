package repository

import (
	"context"
	"time"

	"authgate/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	GetByRefreshTokenID(ctx context.Context, refreshTokenID string) (*domain.Session, error)
	CountActive(ctx context.Context, accountID string) (int, error)
	DeleteOldest(ctx context.Context, accountID string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, id string) error
	DeleteAllByAccount(ctx context.Context, accountID string) error
	UpdateActivity(ctx context.Context, id string, at time.Time, refreshTokenID string) error
}
