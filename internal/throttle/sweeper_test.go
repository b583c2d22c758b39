package throttle

import (
	"context"
	"testing"
	"time"
)

func TestSweeperRunStopsOnCancel(t *testing.T) {
	tr := New(5, 15*time.Minute, 15*time.Minute, nil)
	s := NewSweeper(tr, 10*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancel")
	}
}

func TestSweeperDropsIdleEntries(t *testing.T) {
	clk := newFakeClock()
	tr := New(5, 15*time.Minute, 15*time.Minute, clk)
	tr.RecordFailure("1.2.3.4")
	clk.Advance(time.Hour)

	s := NewSweeper(tr, 5*time.Millisecond, 30*time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for tr.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper did not drop the idle entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
