package ephemeral

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestStore_SetGetExpire(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New[int](WithClock[int](clock.Now))
	defer s.Close()

	if err := s.Set("form-1", 42, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok := s.Get("form-1"); !ok || v != 42 {
		t.Fatalf("Get = %v, %v; want 42, true", v, ok)
	}

	clock.Advance(2 * time.Minute)
	if _, ok := s.Get("form-1"); ok {
		t.Error("expired entry must not be returned")
	}
	if s.Touch("form-1", time.Minute) {
		t.Error("Touch must not revive an expired entry")
	}
}

func TestStore_TouchExtendsLifetime(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New[string](WithClock[string](clock.Now))
	defer s.Close()

	_ = s.Set("k", "v", time.Minute)
	clock.Advance(50 * time.Second)
	if !s.Touch("k", time.Minute) {
		t.Fatal("Touch failed on live entry")
	}
	clock.Advance(50 * time.Second)
	if _, ok := s.Get("k"); !ok {
		t.Error("touched entry expired early")
	}
}

func TestStore_Limits(t *testing.T) {
	s := New[int](WithMaxItems[int](2))
	defer s.Close()

	if err := s.Set(strings.Repeat("x", 256), 1, time.Minute); !errors.Is(err, ErrTooLong) {
		t.Errorf("expected ErrTooLong, got %v", err)
	}
	_ = s.Set("a", 1, time.Minute)
	_ = s.Set("b", 2, time.Minute)
	if err := s.Set("c", 3, time.Minute); !errors.Is(err, ErrStoreFull) {
		t.Errorf("expected ErrStoreFull, got %v", err)
	}
	if err := s.Set("a", 10, time.Minute); err != nil {
		t.Errorf("overwriting an existing key should succeed when full: %v", err)
	}
}

func TestStore_SweepEvicts(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	var evicted []string
	s := New[int](
		WithClock[int](clock.Now),
		WithEvict[int](func(key string, v int) { evicted = append(evicted, key) }),
	)
	defer s.Close()

	_ = s.Set("short", 1, time.Second)
	_ = s.Set("long", 2, time.Hour)
	clock.Advance(time.Minute)

	if n := s.Sweep(); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if len(evicted) != 1 || evicted[0] != "short" {
		t.Errorf("evicted = %v, want [short]", evicted)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestStore_Delete(t *testing.T) {
	s := New[int]()
	defer s.Close()

	_ = s.Set("k", 1, time.Minute)
	s.Delete("k")
	if _, ok := s.Get("k"); ok {
		t.Error("deleted entry still present")
	}
}
