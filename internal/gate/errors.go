package gate

import (
	"errors"
	"fmt"
	"time"
)

// Business outcomes of the gate operations. Handlers map these to response
// codes; anything not in this set is an infrastructure error.
var (
	// ErrInvalidCredentials covers both an unknown identifier and a wrong
	// secret so responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDisabled is returned for administratively deactivated accounts.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrTokenExpired is returned when a refresh token is past its expiry.
	ErrTokenExpired = errors.New("refresh token expired")

	// ErrTokenRevoked is returned for unknown, revoked, or superseded
	// refresh tokens.
	ErrTokenRevoked = errors.New("refresh token revoked")
)

// ThrottledError is returned when a source address is locked out.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry after %s", e.RetryAfter)
}

// IsBusinessError reports whether err is one of the gate's expected outcomes
// rather than an infrastructure failure.
func IsBusinessError(err error) bool {
	var throttled *ThrottledError
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrAccountDisabled) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.As(err, &throttled)
}
