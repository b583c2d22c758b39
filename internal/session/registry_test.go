package session

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"authgate/internal/session/domain"
)

type memStore struct {
	mu sync.Mutex
	m  map[string]*domain.Session
}

func newMemStore() *memStore {
	return &memStore{m: make(map[string]*domain.Session)}
}

func (s *memStore) CountActive(ctx context.Context, accountID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range s.m {
		if sess.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) DeleteOldest(ctx context.Context, accountID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*domain.Session
	for _, sess := range s.m {
		if sess.AccountID == accountID {
			list = append(list, sess)
		}
	}
	if len(list) == 0 {
		return nil, nil
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].LastActivityAt.Equal(list[j].LastActivityAt) {
			return list[i].LastActivityAt.Before(list[j].LastActivityAt)
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	oldest := list[0]
	delete(s.m, oldest.ID)
	return oldest, nil
}

func (s *memStore) Create(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.m[sess.ID] = &cp
	return nil
}

func seed(t *testing.T, s *memStore, id, accountID string, createdAt, lastActivity time.Time) {
	t.Helper()
	if err := s.Create(context.Background(), &domain.Session{
		ID: id, AccountID: accountID, RefreshTokenID: "rt-" + id,
		CreatedAt: createdAt, LastActivityAt: lastActivity,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestAdmit_UnderCap(t *testing.T) {
	store := newMemStore()
	reg := NewRegistry(5)
	now := time.Now().UTC()

	created, evicted, err := reg.Admit(context.Background(), store, "acc-1", "s-1", "rt-1", Descriptor{SourceAddress: "1.2.3.4"}, now)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if created == nil || created.ID != "s-1" || created.RefreshTokenID != "rt-1" {
		t.Errorf("created = %+v", created)
	}
	if len(evicted) != 0 {
		t.Errorf("evicted = %d, want 0", len(evicted))
	}
	if n, _ := store.CountActive(context.Background(), "acc-1"); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestAdmit_AtCapEvictsOldestActivity(t *testing.T) {
	store := newMemStore()
	reg := NewRegistry(5)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// S1 oldest by activity despite being created last.
	for i, act := range []int{10, 1, 2, 3, 4} {
		seed(t, store, []string{"s1", "s2", "s3", "s4", "s5"}[i], "acc-1",
			base.Add(time.Duration(i)*time.Minute),
			base.Add(time.Duration(act)*time.Hour))
	}
	// s2 has the smallest last_activity_at (1h).
	_, evicted, err := reg.Admit(context.Background(), store, "acc-1", "s6", "rt-6", Descriptor{}, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if len(evicted) != 1 || evicted[0].ID != "s2" {
		t.Fatalf("evicted = %+v, want s2", evicted)
	}
	if n, _ := store.CountActive(context.Background(), "acc-1"); n != 5 {
		t.Errorf("count = %d, want 5 (cap held)", n)
	}
	s := store.m["s6"]
	if s == nil {
		t.Fatal("new session missing")
	}
}

func TestAdmit_TieBrokenByCreatedAt(t *testing.T) {
	store := newMemStore()
	reg := NewRegistry(2)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sameActivity := base.Add(time.Hour)

	seed(t, store, "young", "acc-1", base.Add(time.Minute), sameActivity)
	seed(t, store, "old", "acc-1", base, sameActivity)

	_, evicted, err := reg.Admit(context.Background(), store, "acc-1", "new", "rt-new", Descriptor{}, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if len(evicted) != 1 || evicted[0].ID != "old" {
		t.Fatalf("evicted = %+v, want oldest created_at", evicted)
	}
}

func TestAdmit_OtherAccountsUntouched(t *testing.T) {
	store := newMemStore()
	reg := NewRegistry(1)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seed(t, store, "a1", "acc-1", base, base)
	seed(t, store, "b1", "acc-2", base, base)

	_, evicted, err := reg.Admit(context.Background(), store, "acc-1", "a2", "rt-a2", Descriptor{}, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if len(evicted) != 1 || evicted[0].ID != "a1" {
		t.Fatalf("evicted = %+v, want a1", evicted)
	}
	if n, _ := store.CountActive(context.Background(), "acc-2"); n != 1 {
		t.Errorf("acc-2 count = %d, want 1", n)
	}
}
