package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"authgate/internal/db"
	"authgate/internal/session/domain"
)

type PostgresRepository struct {
	q db.Querier
}

// NewPostgresRepository returns a session repository over the given querier.
// Pass a *sql.Tx to run the repository inside an enclosing transaction.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{q: q}
}

const sessionColumns = `id, account_id, refresh_token_id, source_address, user_agent, created_at, last_activity_at`

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetByRefreshTokenID returns the session backed by the given refresh token,
// or nil if not found.
func (r *PostgresRepository) GetByRefreshTokenID(ctx context.Context, refreshTokenID string) (*domain.Session, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_id = $1`, refreshTokenID)
	return scanSession(row)
}

// CountActive returns the number of sessions currently held by the account.
func (r *PostgresRepository) CountActive(ctx context.Context, accountID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE account_id = $1`, accountID).Scan(&n)
	return n, err
}

// DeleteOldest deletes the account's session with the smallest
// last_activity_at (ties broken by created_at) and returns it, or nil if the
// account has no sessions.
func (r *PostgresRepository) DeleteOldest(ctx context.Context, accountID string) (*domain.Session, error) {
	row := r.q.QueryRowContext(ctx, `
		DELETE FROM sessions
		WHERE id = (
			SELECT id FROM sessions
			WHERE account_id = $1
			ORDER BY last_activity_at ASC, created_at ASC
			LIMIT 1
		)
		RETURNING `+sessionColumns,
		accountID,
	)
	return scanSession(row)
}

// Create persists the session. The session must have ID and RefreshTokenID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (id, account_id, refresh_token_id, source_address, user_agent, created_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.AccountID, s.RefreshTokenID, s.SourceAddress,
		sql.NullString{String: s.UserAgent, Valid: s.UserAgent != ""},
		s.CreatedAt, s.LastActivityAt,
	)
	return err
}

// Delete removes the session with the given id. Deleting a missing session is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteAllByAccount removes every session held by the account. Used by the
// refresh-token reuse cascade.
func (r *PostgresRepository) DeleteAllByAccount(ctx context.Context, accountID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE account_id = $1`, accountID)
	return err
}

// UpdateActivity sets the session's last-activity timestamp and, when
// refreshTokenID is non-empty, rebinds the session to the rotated token.
func (r *PostgresRepository) UpdateActivity(ctx context.Context, id string, at time.Time, refreshTokenID string) error {
	if refreshTokenID == "" {
		_, err := r.q.ExecContext(ctx, `UPDATE sessions SET last_activity_at = $2 WHERE id = $1`, id, at)
		return err
	}
	_, err := r.q.ExecContext(ctx, `
		UPDATE sessions SET last_activity_at = $2, refresh_token_id = $3 WHERE id = $1`,
		id, at, refreshTokenID,
	)
	return err
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	var userAgent sql.NullString
	err := row.Scan(&s.ID, &s.AccountID, &s.RefreshTokenID, &s.SourceAddress, &userAgent, &s.CreatedAt, &s.LastActivityAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.UserAgent = userAgent.String
	return &s, nil
}
