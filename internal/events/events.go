// Package events publishes authentication lifecycle events to downstream
// consumers (e.g. a SIEM pipeline). Emission is best-effort; authentication
// outcomes never depend on it.
package events

import (
	"context"
	"log"
	"time"
)

// Event kinds.
const (
	KindLoginSucceeded   = "login.succeeded"
	KindLoginFailed      = "login.failed"
	KindLoginThrottled   = "login.throttled"
	KindSessionEvicted   = "session.evicted"
	KindTokenRefreshed   = "token.refreshed"
	KindTokenReplayed    = "token.replayed"
	KindSessionLoggedOut = "session.logged_out"
)

// AuthEvent is a single authentication lifecycle event.
type AuthEvent struct {
	Kind          string    `json:"kind"`
	AccountID     string    `json:"account_id,omitempty"`
	Identifier    string    `json:"identifier,omitempty"`
	SessionID     string    `json:"session_id,omitempty"`
	SourceAddress string    `json:"source_address"`
	UserAgent     string    `json:"user_agent,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Emitter publishes auth events. Callers use it best-effort: log and ignore errors.
type Emitter interface {
	// Emit sends a single event. Implementations may block briefly; use
	// EmitAsync from request paths.
	Emit(ctx context.Context, event *AuthEvent) error
	// Close releases resources. Safe to call if already closed.
	Close() error
}

// emitTimeout is the max time allowed for a single async emit. Used by
// EmitAsync and by ShutdownDrainDuration.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the HTTP server drains
// before shutting down telemetry providers, so in-flight async emits have
// time to complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync runs Emit in a goroutine with a short timeout so the caller is
// not blocked. emitter and event may be nil; EmitAsync then returns without
// starting a goroutine. The goroutine uses context.Background() so request
// cancellation does not abort an in-flight emit.
func EmitAsync(emitter Emitter, event *AuthEvent) {
	if emitter == nil || event == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil {
			log.Printf("events: async emit failed: %v", err)
		}
	}()
}
