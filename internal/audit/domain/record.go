package domain

import "time"

// Record is one append-only login-audit row. Identifier is the account
// identifier that was attempted, never the secret. Every call to AttemptLogin
// produces exactly one Record regardless of outcome.
type Record struct {
	ID            string
	SourceAddress string
	Identifier    string
	Success       bool
	UserAgent     string
	AttemptedAt   time.Time
}
