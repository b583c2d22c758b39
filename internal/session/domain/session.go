package domain

import "time"

// Session is a durable record of an authenticated login. Each live session is
// backed by exactly one non-revoked, non-expired refresh token.
type Session struct {
	ID             string
	AccountID      string
	RefreshTokenID string
	SourceAddress  string
	UserAgent      string
	CreatedAt      time.Time
	LastActivityAt time.Time
}
