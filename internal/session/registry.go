// Package session enforces the per-account cap on concurrently active
// sessions with oldest-first eviction.
package session

import (
	"context"
	"fmt"
	"time"

	"authgate/internal/session/domain"
)

// Store is the session persistence the registry needs. It is satisfied by the
// session repository bound to the gate's transaction, so admit-or-evict is
// atomic with the rest of the login.
type Store interface {
	CountActive(ctx context.Context, accountID string) (int, error)
	DeleteOldest(ctx context.Context, accountID string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
}

// Descriptor carries the request attributes recorded on a new session.
type Descriptor struct {
	SourceAddress string
	UserAgent     string
}

// Registry admits sessions under a fixed per-account cap. Race safety is the
// caller's concern: the enclosing transaction must hold the account row lock
// so two concurrent admissions for one account serialize.
type Registry struct {
	maxConcurrent int
}

// NewRegistry returns a Registry enforcing the given cap (at least 1).
func NewRegistry(maxConcurrent int) *Registry {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Registry{maxConcurrent: maxConcurrent}
}

// MaxConcurrent returns the session cap.
func (r *Registry) MaxConcurrent() int { return r.maxConcurrent }

// Admit makes room for and inserts a new session for the account. When the
// account is at or above the cap, the sessions with the smallest
// last_activity_at (ties broken by created_at) are deleted first, so the
// account ends with at most maxConcurrent sessions. Returns the created
// session and any evicted ones; the caller must revoke the evicted sessions'
// refresh tokens in the same transaction.
func (r *Registry) Admit(ctx context.Context, store Store, accountID, sessionID, refreshTokenID string, d Descriptor, now time.Time) (*domain.Session, []*domain.Session, error) {
	count, err := store.CountActive(ctx, accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("count active sessions: %w", err)
	}

	var evicted []*domain.Session
	for count >= r.maxConcurrent {
		old, err := store.DeleteOldest(ctx, accountID)
		if err != nil {
			return nil, nil, fmt.Errorf("evict oldest session: %w", err)
		}
		if old == nil {
			break
		}
		evicted = append(evicted, old)
		count--
	}

	s := &domain.Session{
		ID:             sessionID,
		AccountID:      accountID,
		RefreshTokenID: refreshTokenID,
		SourceAddress:  d.SourceAddress,
		UserAgent:      d.UserAgent,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if err := store.Create(ctx, s); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	return s, evicted, nil
}
