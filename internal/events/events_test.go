package events

import (
	"context"
	"sync"
	"testing"
	"time"
)

type memEmitter struct {
	mu     sync.Mutex
	events []*AuthEvent
	err    error
	seen   chan struct{}
}

func newMemEmitter() *memEmitter {
	return &memEmitter{seen: make(chan struct{}, 16)}
}

func (m *memEmitter) Emit(_ context.Context, event *AuthEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	m.seen <- struct{}{}
	return m.err
}

func (m *memEmitter) Close() error { return nil }

func TestEmitAsync_DeliversEvent(t *testing.T) {
	em := newMemEmitter()
	EmitAsync(em, &AuthEvent{Kind: KindLoginSucceeded, AccountID: "acct-1"})

	select {
	case <-em.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.events) != 1 || em.events[0].Kind != KindLoginSucceeded {
		t.Fatalf("unexpected events: %+v", em.events)
	}
}

func TestEmitAsync_NilEmitterAndEvent(t *testing.T) {
	// must not panic or spawn goroutines
	EmitAsync(nil, &AuthEvent{Kind: KindLoginFailed})
	em := newMemEmitter()
	EmitAsync(em, nil)

	select {
	case <-em.seen:
		t.Fatal("nil event must not be emitted")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewKafkaEmitter_DisabledWhenUnconfigured(t *testing.T) {
	em, err := NewKafkaEmitter(nil, "authgate-events")
	if err != nil || em != nil {
		t.Fatalf("expected disabled emitter, got %v, %v", em, err)
	}
	em, err = NewKafkaEmitter([]string{"localhost:9092"}, "")
	if err != nil || em != nil {
		t.Fatalf("expected disabled emitter, got %v, %v", em, err)
	}
}
