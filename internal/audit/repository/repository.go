package repository

import (
	"context"

	"authgate/internal/audit/domain"
)

// Repository defines persistence for the append-only login audit trail.
type Repository interface {
	Record(ctx context.Context, rec *domain.Record) error
	CountBySource(ctx context.Context, sourceAddress string) (int, error)
}
