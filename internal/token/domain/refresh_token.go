package domain

import "time"

// RefreshToken is the persisted metadata of a long-lived refresh token. Only
// the SHA-256 hash of the opaque value is stored; the value itself is returned
// to the caller once at issue time.
type RefreshToken struct {
	ID            string
	AccountID     string
	TokenHash     string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	SourceAddress string
	UserAgent     string
	RevokedAt     *time.Time // nil when not revoked
}

// Expired reports whether the token's lifetime has elapsed at the given time.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Revoked reports whether the token has been revoked (by rotation, logout, or
// session eviction).
func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}
