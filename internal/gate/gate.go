// Package gate orchestrates login, token refresh, and logout. It owns the
// transactional boundary: every durable write of an operation happens in one
// database transaction, while throttle state is only touched after a commit.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	accountdomain "authgate/internal/account/domain"
	auditdomain "authgate/internal/audit/domain"
	"authgate/internal/clock"
	"authgate/internal/events"
	"authgate/internal/security"
	"authgate/internal/session"
	sessiondomain "authgate/internal/session/domain"
	"authgate/internal/throttle"
	"authgate/internal/token"
)

// Credentials is a login request's identifier/secret pair.
type Credentials struct {
	Identifier string
	Secret     string
}

// Client carries the request attributes the gate records: the resolved
// client address and the user agent.
type Client struct {
	SourceAddress string
	UserAgent     string
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Account         accountdomain.Summary
	SessionID       string
	Tokens          token.Pair
	EvictedSessions int
}

// RefreshResult is the outcome of a successful token refresh.
type RefreshResult struct {
	SessionID string
	Tokens    token.Pair
}

// Gate is the authentication orchestrator.
type Gate struct {
	store    Store
	throttle *throttle.Throttle
	registry *session.Registry
	issuer   *token.Issuer
	verifier *CredentialVerifier
	clk      clock.Clock
	emitter  events.Emitter
	metrics  *gateMetrics
}

// New wires a Gate. clk may be nil (system clock); emitter may be nil
// (events disabled).
func New(store Store, thr *throttle.Throttle, registry *session.Registry, issuer *token.Issuer, verifier *CredentialVerifier, clk clock.Clock, emitter events.Emitter) *Gate {
	if clk == nil {
		clk = clock.System()
	}
	return &Gate{
		store:    store,
		throttle: thr,
		registry: registry,
		issuer:   issuer,
		verifier: verifier,
		clk:      clk,
		emitter:  emitter,
		metrics:  newGateMetrics(),
	}
}

// AttemptLogin verifies credentials and, on success, establishes a session
// and issues a token pair. Exactly one audit record is written per call.
//
// A throttled source is rejected before any credential work; the rejection
// is still audited, but outside a transaction, so a slow audit store cannot
// widen the fast path. Failed attempts advance the throttle counter only
// after their audit record has committed; an infrastructure error therefore
// never consumes an attempt.
func (g *Gate) AttemptLogin(ctx context.Context, creds Credentials, client Client) (*LoginResult, error) {
	now := g.clk.Now()

	if d := g.throttle.Check(client.SourceAddress); !d.Allowed {
		g.auditThrottled(ctx, creds.Identifier, client)
		g.metrics.recordLogin(ctx, outcomeThrottled)
		events.EmitAsync(g.emitter, &events.AuthEvent{
			Kind:          events.KindLoginThrottled,
			Identifier:    creds.Identifier,
			SourceAddress: client.SourceAddress,
			UserAgent:     client.UserAgent,
			OccurredAt:    now,
		})
		return nil, &ThrottledError{RetryAfter: d.RetryAfter}
	}

	var (
		bizErr  error
		result  *LoginResult
		evicted []*sessiondomain.Session
	)
	err := g.store.InTx(ctx, func(tx Tx) error {
		account, err := g.verifier.Verify(ctx, tx.Accounts(), creds.Identifier, creds.Secret)
		if err != nil {
			if !IsBusinessError(err) {
				return err
			}
			// commit the failure audit; the error surfaces after commit
			bizErr = err
			return tx.Audit().Record(ctx, &auditdomain.Record{
				ID:            uuid.New().String(),
				SourceAddress: client.SourceAddress,
				Identifier:    creds.Identifier,
				Success:       false,
				UserAgent:     client.UserAgent,
				AttemptedAt:   now,
			})
		}

		sessionID := uuid.New().String()
		pair, rt, err := g.issuer.Issue(ctx, tx.RefreshTokens(), account, sessionID, token.Descriptor{
			SourceAddress: client.SourceAddress,
			UserAgent:     client.UserAgent,
		}, now)
		if err != nil {
			return err
		}

		created, dropped, err := g.registry.Admit(ctx, tx.Sessions(), account.ID, sessionID, rt.ID, session.Descriptor{
			SourceAddress: client.SourceAddress,
			UserAgent:     client.UserAgent,
		}, now)
		if err != nil {
			return err
		}
		evicted = dropped
		for _, old := range evicted {
			if err := tx.RefreshTokens().Revoke(ctx, old.RefreshTokenID, now); err != nil {
				return fmt.Errorf("revoke evicted session token: %w", err)
			}
		}

		if err := tx.Accounts().UpdateLastLogin(ctx, account.ID, now, client.SourceAddress); err != nil {
			return fmt.Errorf("record last login: %w", err)
		}
		if err := tx.Audit().Record(ctx, &auditdomain.Record{
			ID:            uuid.New().String(),
			SourceAddress: client.SourceAddress,
			Identifier:    creds.Identifier,
			Success:       true,
			UserAgent:     client.UserAgent,
			AttemptedAt:   now,
		}); err != nil {
			return fmt.Errorf("record audit: %w", err)
		}

		result = &LoginResult{
			Account:         account.Summary(),
			SessionID:       created.ID,
			Tokens:          *pair,
			EvictedSessions: len(evicted),
		}
		return nil
	})
	if err != nil {
		g.metrics.recordLogin(ctx, outcomeError)
		return nil, fmt.Errorf("login: %w", err)
	}

	if bizErr != nil {
		g.throttle.RecordFailure(client.SourceAddress)
		outcome := outcomeInvalidCredentials
		if errors.Is(bizErr, ErrAccountDisabled) {
			outcome = outcomeDisabled
		}
		g.metrics.recordLogin(ctx, outcome)
		events.EmitAsync(g.emitter, &events.AuthEvent{
			Kind:          events.KindLoginFailed,
			Identifier:    creds.Identifier,
			SourceAddress: client.SourceAddress,
			UserAgent:     client.UserAgent,
			OccurredAt:    now,
		})
		return nil, bizErr
	}

	g.throttle.Clear(client.SourceAddress)
	g.metrics.recordLogin(ctx, outcomeSuccess)
	g.metrics.recordEvictions(ctx, result.EvictedSessions)
	for _, old := range evicted {
		events.EmitAsync(g.emitter, &events.AuthEvent{
			Kind:          events.KindSessionEvicted,
			AccountID:     old.AccountID,
			SessionID:     old.ID,
			SourceAddress: client.SourceAddress,
			UserAgent:     client.UserAgent,
			OccurredAt:    now,
		})
	}
	events.EmitAsync(g.emitter, &events.AuthEvent{
		Kind:          events.KindLoginSucceeded,
		AccountID:     result.Account.ID,
		Identifier:    creds.Identifier,
		SessionID:     result.SessionID,
		SourceAddress: client.SourceAddress,
		UserAgent:     client.UserAgent,
		OccurredAt:    now,
	})
	return result, nil
}

// RefreshSession rotates a refresh token: the presented token is revoked and
// a fresh pair bound to the same session is issued, atomically. Presenting a
// token that has already been rotated is treated as theft evidence: every
// refresh token and session of the account is cut.
func (g *Gate) RefreshSession(ctx context.Context, rawToken string, client Client) (*RefreshResult, error) {
	now := g.clk.Now()
	hash := security.HashRefreshToken(rawToken)

	var (
		bizErr error
		result *RefreshResult
		reused bool
	)
	err := g.store.InTx(ctx, func(tx Tx) error {
		rt, err := tx.RefreshTokens().GetByHashForUpdate(ctx, hash)
		if err != nil {
			return err
		}
		if rt == nil {
			bizErr = ErrTokenRevoked
			return nil
		}
		if rt.Revoked() {
			// replay of a rotated token: the original may be in an
			// attacker's hands, so every session on the account is cut
			if err := tx.RefreshTokens().RevokeAllByAccount(ctx, rt.AccountID, now); err != nil {
				return err
			}
			if err := tx.Sessions().DeleteAllByAccount(ctx, rt.AccountID); err != nil {
				return err
			}
			reused = true
			bizErr = ErrTokenRevoked
			return nil
		}
		if rt.Expired(now) {
			if err := g.retire(ctx, tx, rt.ID, now); err != nil {
				return err
			}
			bizErr = ErrTokenExpired
			return nil
		}

		account, err := tx.Accounts().GetByID(ctx, rt.AccountID)
		if err != nil {
			return err
		}
		if account == nil || !account.Active {
			if err := g.retire(ctx, tx, rt.ID, now); err != nil {
				return err
			}
			bizErr = ErrAccountDisabled
			return nil
		}

		sess, err := tx.Sessions().GetByRefreshTokenID(ctx, rt.ID)
		if err != nil {
			return err
		}
		if sess == nil {
			// session was evicted under the concurrency cap
			if err := tx.RefreshTokens().Revoke(ctx, rt.ID, now); err != nil {
				return err
			}
			bizErr = ErrTokenRevoked
			return nil
		}

		pair, fresh, err := g.issuer.Rotate(ctx, tx.RefreshTokens(), rt, account, sess.ID, token.Descriptor{
			SourceAddress: client.SourceAddress,
			UserAgent:     client.UserAgent,
		}, now)
		if err != nil {
			return err
		}
		if err := tx.Sessions().UpdateActivity(ctx, sess.ID, now, fresh.ID); err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
		result = &RefreshResult{SessionID: sess.ID, Tokens: *pair}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if bizErr != nil {
		if reused {
			g.metrics.recordReuse(ctx)
			events.EmitAsync(g.emitter, &events.AuthEvent{
				Kind:          events.KindTokenReplayed,
				SourceAddress: client.SourceAddress,
				UserAgent:     client.UserAgent,
				OccurredAt:    now,
			})
		}
		return nil, bizErr
	}

	g.metrics.recordRotation(ctx)
	events.EmitAsync(g.emitter, &events.AuthEvent{
		Kind:          events.KindTokenRefreshed,
		SessionID:     result.SessionID,
		SourceAddress: client.SourceAddress,
		UserAgent:     client.UserAgent,
		OccurredAt:    now,
	})
	return result, nil
}

// Logout terminates the session and revokes its refresh token. Unknown
// session ids are a no-op, so logout is idempotent.
func (g *Gate) Logout(ctx context.Context, sessionID string, client Client) error {
	now := g.clk.Now()
	var accountID string
	err := g.store.InTx(ctx, func(tx Tx) error {
		sess, err := tx.Sessions().GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess == nil {
			return nil
		}
		accountID = sess.AccountID
		if err := tx.RefreshTokens().Revoke(ctx, sess.RefreshTokenID, now); err != nil {
			return err
		}
		return tx.Sessions().Delete(ctx, sess.ID)
	})
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if accountID != "" {
		events.EmitAsync(g.emitter, &events.AuthEvent{
			Kind:          events.KindSessionLoggedOut,
			AccountID:     accountID,
			SessionID:     sessionID,
			SourceAddress: client.SourceAddress,
			UserAgent:     client.UserAgent,
			OccurredAt:    now,
		})
	}
	return nil
}

// retire revokes a dead refresh token and removes the session bound to it.
func (g *Gate) retire(ctx context.Context, tx Tx, refreshTokenID string, now time.Time) error {
	if err := tx.RefreshTokens().Revoke(ctx, refreshTokenID, now); err != nil {
		return err
	}
	sess, err := tx.Sessions().GetByRefreshTokenID(ctx, refreshTokenID)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	return tx.Sessions().Delete(ctx, sess.ID)
}

// auditThrottled records a rejected attempt outside any transaction. Failure
// here is logged and swallowed; the rejection itself stands either way.
func (g *Gate) auditThrottled(ctx context.Context, identifier string, client Client) {
	rec := &auditdomain.Record{
		ID:            uuid.New().String(),
		SourceAddress: client.SourceAddress,
		Identifier:    identifier,
		Success:       false,
		UserAgent:     client.UserAgent,
		AttemptedAt:   g.clk.Now(),
	}
	if err := g.store.Audit().Record(ctx, rec); err != nil {
		log.Printf("gate: audit throttled attempt: %v", err)
	}
}
