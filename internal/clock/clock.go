// Package clock provides an injectable time source so lockout and expiry
// logic can be tested without sleeping.
package clock

import "time"

// Clock supplies the current time. Components accept a Clock instead of
// calling time.Now directly.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns a Clock backed by time.Now in UTC.
func System() Clock { return systemClock{} }
