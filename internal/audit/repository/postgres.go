package repository

import (
	"context"
	"database/sql"

	"authgate/internal/audit/domain"
	"authgate/internal/db"
)

type PostgresRepository struct {
	q db.Querier
}

// NewPostgresRepository returns an audit repository over the given querier.
// Pass a *sql.Tx to run the repository inside an enclosing transaction.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// Record appends one audit row. The table is append-only; rows are never
// updated or deleted by the application.
func (r *PostgresRepository) Record(ctx context.Context, rec *domain.Record) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO login_audit (id, source_address, identifier, success, user_agent, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.SourceAddress, rec.Identifier, rec.Success,
		sql.NullString{String: rec.UserAgent, Valid: rec.UserAgent != ""},
		rec.AttemptedAt,
	)
	return err
}

// CountBySource returns the number of audit rows recorded for the given source address.
func (r *PostgresRepository) CountBySource(ctx context.Context, sourceAddress string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM login_audit WHERE source_address = $1`, sourceAddress).Scan(&n)
	return n, err
}
