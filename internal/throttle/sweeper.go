package throttle

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically drops idle throttle entries. It is an explicitly owned
// background task: Run blocks until ctx is cancelled, so the caller controls
// start and stop (shutdown, tests).
type Sweeper struct {
	throttle  *Throttle
	interval  time.Duration
	retention time.Duration
}

// NewSweeper returns a Sweeper that calls throttle.Sweep(retention) every interval.
func NewSweeper(t *Throttle, interval, retention time.Duration) *Sweeper {
	return &Sweeper{throttle: t, interval: interval, retention: retention}
}

// Run sweeps on every tick until ctx is cancelled. Call from a dedicated
// goroutine; it returns when ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			before := s.throttle.Len()
			s.throttle.Sweep(s.retention)
			if dropped := before - s.throttle.Len(); dropped > 0 {
				log.Printf("throttle: swept %d idle sources", dropped)
			}
		}
	}
}
