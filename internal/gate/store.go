package gate

import (
	"context"

	accountrepo "authgate/internal/account/repository"
	auditrepo "authgate/internal/audit/repository"
	sessionrepo "authgate/internal/session/repository"
	tokenrepo "authgate/internal/token/repository"
)

// Tx exposes the repositories bound to a single database transaction.
type Tx interface {
	Accounts() accountrepo.Repository
	Sessions() sessionrepo.Repository
	RefreshTokens() tokenrepo.Repository
	Audit() auditrepo.Repository
}

// Store is the gate's unit of work. InTx runs fn inside a transaction,
// committing when fn returns nil and rolling back otherwise. Audit returns
// an auto-commit audit writer for paths that never open a transaction.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Audit() auditrepo.Repository
}
