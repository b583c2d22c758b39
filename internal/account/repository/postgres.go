package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"authgate/internal/account/domain"
	"authgate/internal/db"
)

type PostgresRepository struct {
	q db.Querier
}

// NewPostgresRepository returns an account repository over the given querier.
// Pass a *sql.Tx to run the repository inside an enclosing transaction.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{q: q}
}

const accountColumns = `id, email, name, password_hash, role, avatar_url, active, last_login_at, last_login_ip, created_at, updated_at`

// GetByID returns the account for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByEmailForUpdate returns the account with the given email, locking its
// row for the duration of the enclosing transaction, or nil if not found.
// The row lock serializes concurrent logins for the same account so the
// session cap cannot be overshot; logins for different accounts do not block.
func (r *PostgresRepository) GetByEmailForUpdate(ctx context.Context, email string) (*domain.Account, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1 FOR UPDATE`, email)
	return scanAccount(row)
}

// Create persists the account. The account must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO accounts (id, email, name, password_hash, role, avatar_url, active, last_login_at, last_login_ip, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.Email, a.Name, a.PasswordHash, a.Role,
		nullString(a.AvatarURL), a.Active, nullTime(a.LastLoginAt), nullString(a.LastLoginIP),
		a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// UpdateLastLogin records the time and source address of the latest
// successful login for the account.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time, ip string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE accounts SET last_login_at = $2, last_login_ip = $3, updated_at = $2 WHERE id = $1`,
		id, at, nullString(ip),
	)
	return err
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	var a domain.Account
	var avatarURL, lastLoginIP sql.NullString
	var lastLoginAt sql.NullTime
	err := row.Scan(
		&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.Role,
		&avatarURL, &a.Active, &lastLoginAt, &lastLoginIP,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.AvatarURL = avatarURL.String
	a.LastLoginIP = lastLoginIP.String
	if lastLoginAt.Valid {
		a.LastLoginAt = &lastLoginAt.Time
	}
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
