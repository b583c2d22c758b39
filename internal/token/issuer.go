// Package token issues access/refresh token pairs and rotates refresh tokens.
package token

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	accountdomain "authgate/internal/account/domain"
	"authgate/internal/security"
	"authgate/internal/token/domain"
)

// Store is the refresh-token persistence the issuer needs, bound to the
// gate's transaction so rotation revokes the old token atomically with
// issuing the new one.
type Store interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	Revoke(ctx context.Context, id string, at time.Time) error
}

// Descriptor carries the request attributes recorded on refresh-token metadata.
type Descriptor struct {
	SourceAddress string
	UserAgent     string
}

// Pair is an issued access/refresh token pair. RefreshToken is the opaque
// value; it is returned to the caller exactly once and only its hash is stored.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Issuer mints access tokens (stateless JWTs) and refresh tokens (opaque,
// persisted hashed).
type Issuer struct {
	signer     *security.TokenProvider
	refreshTTL time.Duration
}

// NewIssuer returns an Issuer signing access tokens with the given provider
// and issuing refresh tokens valid for refreshTTL.
func NewIssuer(signer *security.TokenProvider, refreshTTL time.Duration) *Issuer {
	return &Issuer{signer: signer, refreshTTL: refreshTTL}
}

// Issue creates a refresh token for the account and mints a matching access
// token bound to sessionID. The refresh-token row is written through store.
func (i *Issuer) Issue(ctx context.Context, store Store, account *accountdomain.Account, sessionID string, d Descriptor, now time.Time) (*Pair, *domain.RefreshToken, error) {
	value, err := security.NewRefreshTokenValue()
	if err != nil {
		return nil, nil, fmt.Errorf("generate refresh token: %w", err)
	}
	rt := &domain.RefreshToken{
		ID:            uuid.New().String(),
		AccountID:     account.ID,
		TokenHash:     security.HashRefreshToken(value),
		IssuedAt:      now,
		ExpiresAt:     now.Add(i.refreshTTL),
		SourceAddress: d.SourceAddress,
		UserAgent:     d.UserAgent,
	}
	if err := store.Create(ctx, rt); err != nil {
		return nil, nil, fmt.Errorf("persist refresh token: %w", err)
	}
	access, accessExp, err := i.signer.IssueAccess(sessionID, account.ID, account.Role, now)
	if err != nil {
		return nil, nil, fmt.Errorf("sign access token: %w", err)
	}
	return &Pair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     value,
		RefreshExpiresAt: rt.ExpiresAt,
	}, rt, nil
}

// Rotate revokes old and issues a replacement pair in the same enclosing
// transaction, so a stolen prior token cannot be replayed after rotation.
func (i *Issuer) Rotate(ctx context.Context, store Store, old *domain.RefreshToken, account *accountdomain.Account, sessionID string, d Descriptor, now time.Time) (*Pair, *domain.RefreshToken, error) {
	if err := store.Revoke(ctx, old.ID, now); err != nil {
		return nil, nil, fmt.Errorf("revoke rotated token: %w", err)
	}
	return i.Issue(ctx, store, account, sessionID, d, now)
}

// Revoke marks the refresh token with the given id as revoked.
func (i *Issuer) Revoke(ctx context.Context, store Store, id string, now time.Time) error {
	return store.Revoke(ctx, id, now)
}
