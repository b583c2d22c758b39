package repository

import (
	"context"
	"time"

	"authgate/internal/account/domain"
)

// Repository defines persistence for accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmailForUpdate(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time, ip string) error
}
