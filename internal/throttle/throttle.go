// Package throttle bounds failed login attempts per source address with a
// fixed counting window and an escalating lockout.
//
// State is in-process only and is lost on restart; a single authoritative
// process instance is assumed. Entries are swept once idle past a retention
// horizon, so memory stays bounded even under address-spraying traffic.
package throttle

import (
	"hash/fnv"
	"sync"
	"time"

	"authgate/internal/clock"
)

// shardCount is a power of two so the shard index is a cheap mask. 16 shards
// keep same-source attack traffic serialized on one lock without making
// unrelated sources contend.
const shardCount = 16

// Decision is the outcome of a throttle check. RetryAfter is meaningful only
// when Allowed is false.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type entry struct {
	count        int
	windowStart  time.Time
	lastAttempt  time.Time
	blockedUntil time.Time // zero when no lockout has been set
}

type shard struct {
	mu sync.Mutex
	m  map[string]*entry
}

// Throttle counts login failures per source in a fixed window and locks a
// source out once the count reaches maxAttempts. Absence of an entry means
// the source is allowed; Check never fails.
type Throttle struct {
	maxAttempts int
	window      time.Duration
	lockout     time.Duration
	clk         clock.Clock

	shards [shardCount]shard
}

// New returns a Throttle that allows maxAttempts failures per window before
// locking a source out for the lockout duration. clk may be nil; the system
// clock is used then.
func New(maxAttempts int, window, lockout time.Duration, clk clock.Clock) *Throttle {
	if clk == nil {
		clk = clock.System()
	}
	t := &Throttle{
		maxAttempts: maxAttempts,
		window:      window,
		lockout:     lockout,
		clk:         clk,
	}
	for i := range t.shards {
		t.shards[i].m = make(map[string]*entry)
	}
	return t
}

// Check reports whether the source may attempt a login. A source is rejected
// only while a lockout is active; RetryAfter is the remaining lockout.
func (t *Throttle) Check(source string) Decision {
	now := t.clk.Now()
	s := t.shardFor(source)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[source]
	if !ok {
		return Decision{Allowed: true}
	}
	if e.blockedUntil.After(now) {
		return Decision{Allowed: false, RetryAfter: e.blockedUntil.Sub(now)}
	}
	return Decision{Allowed: true}
}

// RecordFailure counts one failed attempt from the source. A stale window
// (older than the window duration, with no active lockout) restarts counting
// at 1 rather than accumulating. Reaching maxAttempts sets a lockout that
// survives further window resets until it expires.
func (t *Throttle) RecordFailure(source string) {
	now := t.clk.Now()
	s := t.shardFor(source)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[source]
	if !ok {
		e = &entry{count: 1, windowStart: now}
		s.m[source] = e
	} else {
		locked := e.blockedUntil.After(now)
		if !locked && now.Sub(e.windowStart) > t.window {
			e.count = 1
			e.windowStart = now
			e.blockedUntil = time.Time{}
		} else {
			e.count++
		}
	}
	if e.count >= t.maxAttempts && !e.blockedUntil.After(now) {
		e.blockedUntil = now.Add(t.lockout)
	}
	e.lastAttempt = now
}

// Clear removes all throttle state for the source. Called after a successful
// login so counting restarts from zero.
func (t *Throttle) Clear(source string) {
	s := t.shardFor(source)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, source)
}

// Sweep deletes entries whose last attempt is older than olderThan,
// regardless of lockout state. It locks one shard at a time so request
// latency is not affected by the scan.
func (t *Throttle) Sweep(olderThan time.Duration) {
	cutoff := t.clk.Now().Add(-olderThan)
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		for source, e := range s.m {
			if e.lastAttempt.Before(cutoff) {
				delete(s.m, source)
			}
		}
		s.mu.Unlock()
	}
}

// Len returns the number of tracked sources. Used by tests and the sweeper log.
func (t *Throttle) Len() int {
	n := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		n += len(s.m)
		s.mu.Unlock()
	}
	return n
}

func (t *Throttle) shardFor(source string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(source))
	return &t.shards[h.Sum32()&(shardCount-1)]
}
