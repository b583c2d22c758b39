package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"authgate/internal/db"
	"authgate/internal/token/domain"
)

type PostgresRepository struct {
	q db.Querier
}

// NewPostgresRepository returns a refresh-token repository over the given querier.
// Pass a *sql.Tx to run the repository inside an enclosing transaction.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{q: q}
}

const tokenColumns = `id, account_id, token_hash, issued_at, expires_at, source_address, user_agent, revoked_at`

// Create persists the refresh token metadata. The token must have ID and TokenHash set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, account_id, token_hash, issued_at, expires_at, source_address, user_agent, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.AccountID, t.TokenHash, t.IssuedAt, t.ExpiresAt, t.SourceAddress,
		sql.NullString{String: t.UserAgent, Valid: t.UserAgent != ""},
		nullTime(t.RevokedAt),
	)
	return err
}

// GetByHashForUpdate returns the refresh token with the given value hash,
// locking its row for the duration of the enclosing transaction, or nil if
// not found. The lock serializes concurrent rotations of the same token.
func (r *PostgresRepository) GetByHashForUpdate(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM refresh_tokens WHERE token_hash = $1 FOR UPDATE`, tokenHash)
	return scanToken(row)
}

// GetByID returns the refresh token for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.RefreshToken, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM refresh_tokens WHERE id = $1`, id)
	return scanToken(row)
}

// Revoke marks the token with the given id as revoked at the given time.
// Revoked rows are kept so replay of a rotated token is detectable.
func (r *PostgresRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`,
		id, at,
	)
	return err
}

// RevokeAllByAccount revokes every live refresh token of the account. Used by
// the refresh-token reuse cascade.
func (r *PostgresRepository) RevokeAllByAccount(ctx context.Context, accountID string, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = $2 WHERE account_id = $1 AND revoked_at IS NULL`,
		accountID, at,
	)
	return err
}

func scanToken(row *sql.Row) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	var userAgent sql.NullString
	var revokedAt sql.NullTime
	err := row.Scan(&t.ID, &t.AccountID, &t.TokenHash, &t.IssuedAt, &t.ExpiresAt, &t.SourceAddress, &userAgent, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.UserAgent = userAgent.String
	if revokedAt.Valid {
		t.RevokedAt = &revokedAt.Time
	}
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
