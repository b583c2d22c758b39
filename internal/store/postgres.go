// Package store binds the Postgres repositories into the gate's unit of work.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	accountrepo "authgate/internal/account/repository"
	auditrepo "authgate/internal/audit/repository"
	"authgate/internal/gate"
	sessionrepo "authgate/internal/session/repository"
	tokenrepo "authgate/internal/token/repository"
)

// Postgres implements gate.Store over a *sql.DB.
type Postgres struct {
	db *sql.DB
}

// NewPostgres returns a store backed by db.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// InTx runs fn in a transaction; nil from fn commits, anything else rolls
// back. The panic path also rolls back before re-panicking.
func (s *Postgres) InTx(ctx context.Context, fn func(tx gate.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&pgTx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Audit returns an auto-commit audit writer for paths that never open a
// transaction (throttled login attempts).
func (s *Postgres) Audit() auditrepo.Repository {
	return auditrepo.NewPostgresRepository(s.db)
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) Accounts() accountrepo.Repository    { return accountrepo.NewPostgresRepository(t.tx) }
func (t *pgTx) Sessions() sessionrepo.Repository    { return sessionrepo.NewPostgresRepository(t.tx) }
func (t *pgTx) RefreshTokens() tokenrepo.Repository { return tokenrepo.NewPostgresRepository(t.tx) }
func (t *pgTx) Audit() auditrepo.Repository         { return auditrepo.NewPostgresRepository(t.tx) }
