package throttle

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable clock for driving window and lockout expiry.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCheck_UnknownSourceAllowed(t *testing.T) {
	tr := New(5, 15*time.Minute, 15*time.Minute, newFakeClock())
	d := tr.Check("1.2.3.4")
	if !d.Allowed {
		t.Fatal("unknown source should be allowed")
	}
}

func TestLockoutAfterMaxAttempts(t *testing.T) {
	clk := newFakeClock()
	tr := New(3, 10*time.Minute, 15*time.Minute, clk)

	// Scenario: three failures at t=0, 1, 2 minutes.
	tr.RecordFailure("1.2.3.4")
	clk.Advance(time.Minute)
	tr.RecordFailure("1.2.3.4")
	clk.Advance(time.Minute)
	tr.RecordFailure("1.2.3.4")
	clk.Advance(time.Minute)

	d := tr.Check("1.2.3.4")
	if d.Allowed {
		t.Fatal("source should be locked out after 3 failures")
	}
	if d.RetryAfter != 14*time.Minute {
		t.Errorf("RetryAfter = %v, want 14m (lockout set at t=2m, checked at t=3m)", d.RetryAfter)
	}

	// Other sources are unaffected.
	if !tr.Check("5.6.7.8").Allowed {
		t.Error("unrelated source should be allowed")
	}
}

func TestLockoutExpires(t *testing.T) {
	clk := newFakeClock()
	tr := New(2, 10*time.Minute, 5*time.Minute, clk)

	tr.RecordFailure("1.2.3.4")
	tr.RecordFailure("1.2.3.4")
	if tr.Check("1.2.3.4").Allowed {
		t.Fatal("should be locked")
	}

	clk.Advance(5*time.Minute + time.Second)
	if !tr.Check("1.2.3.4").Allowed {
		t.Fatal("lockout should have expired")
	}
}

func TestWindowReset(t *testing.T) {
	clk := newFakeClock()
	tr := New(3, 10*time.Minute, 15*time.Minute, clk)

	// Two failures, then silence longer than the window.
	tr.RecordFailure("1.2.3.4")
	tr.RecordFailure("1.2.3.4")
	clk.Advance(11 * time.Minute)

	// Fresh window: this failure counts as 1, so two more are needed to lock.
	tr.RecordFailure("1.2.3.4")
	if !tr.Check("1.2.3.4").Allowed {
		t.Fatal("stale window should restart counting, not accumulate")
	}
	tr.RecordFailure("1.2.3.4")
	if !tr.Check("1.2.3.4").Allowed {
		t.Fatal("count should be 2 in the fresh window")
	}
	tr.RecordFailure("1.2.3.4")
	if tr.Check("1.2.3.4").Allowed {
		t.Fatal("third failure in fresh window should lock")
	}
}

func TestLockoutSurvivesWindowReset(t *testing.T) {
	clk := newFakeClock()
	tr := New(2, time.Minute, 30*time.Minute, clk)

	tr.RecordFailure("1.2.3.4")
	tr.RecordFailure("1.2.3.4")

	// Well past the counting window but inside the lockout.
	clk.Advance(10 * time.Minute)
	d := tr.Check("1.2.3.4")
	if d.Allowed {
		t.Fatal("lockout must remain independent of window resets")
	}
	if d.RetryAfter != 20*time.Minute {
		t.Errorf("RetryAfter = %v, want 20m", d.RetryAfter)
	}
}

func TestClear(t *testing.T) {
	clk := newFakeClock()
	tr := New(3, 10*time.Minute, 15*time.Minute, clk)

	tr.RecordFailure("1.2.3.4")
	tr.RecordFailure("1.2.3.4")
	tr.Clear("1.2.3.4")
	if tr.Len() != 0 {
		t.Fatal("Clear should remove the entry")
	}

	// Counting restarts from zero.
	tr.RecordFailure("1.2.3.4")
	tr.RecordFailure("1.2.3.4")
	if !tr.Check("1.2.3.4").Allowed {
		t.Fatal("two failures after Clear should not lock with maxAttempts=3")
	}
}

func TestSweep(t *testing.T) {
	clk := newFakeClock()
	tr := New(5, 15*time.Minute, 15*time.Minute, clk)

	tr.RecordFailure("stale.source")
	clk.Advance(25 * time.Hour)
	tr.RecordFailure("fresh.source")

	tr.Sweep(24 * time.Hour)
	if tr.Len() != 1 {
		t.Fatalf("Len = %d after sweep, want 1", tr.Len())
	}
	if !tr.Check("stale.source").Allowed {
		t.Error("swept source should be treated as unknown")
	}
}

func TestSweepKeepsActiveLockoutWithinRetention(t *testing.T) {
	clk := newFakeClock()
	tr := New(1, 15*time.Minute, 48*time.Hour, clk)

	tr.RecordFailure("1.2.3.4")
	clk.Advance(time.Hour)
	tr.Sweep(24 * time.Hour)

	if tr.Check("1.2.3.4").Allowed {
		t.Fatal("recent lockout must survive the sweep")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := New(1000000, time.Hour, time.Hour, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			source := fmt.Sprintf("10.0.0.%d", i%4)
			for j := 0; j < 500; j++ {
				tr.RecordFailure(source)
				tr.Check(source)
				if j%100 == 0 {
					tr.Sweep(time.Hour)
				}
			}
		}(i)
	}
	wg.Wait()

	if tr.Len() == 0 {
		t.Fatal("expected tracked sources after concurrent load")
	}
}
