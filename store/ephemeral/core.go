// Package ephemeral holds short-lived, size-bounded in-memory state such as
// signup forms that have not been submitted yet.
package ephemeral

import (
	"errors"
	"sync"
	"time"

	"github.com/devink/campusconnect/internal/logging"
	"github.com/devink/campusconnect/internal/utils"
)

var (
	ErrTooLong   = errors.New("key too long")
	ErrStoreFull = errors.New("ephemeral store full")
)

const (
	maxKeyLength    = 255
	defaultMaxItems = 1000
	cleanupInterval = time.Minute
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Store is a TTL map. Expired entries are invisible immediately and removed
// by a background sweep.
type Store[V any] struct {
	mu       sync.RWMutex
	data     map[string]*item[V]
	maxItems int
	now      func() time.Time
	onEvict  func(key string, v V)
	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Store.
type Option[V any] func(*Store[V])

// WithMaxItems bounds the number of live entries.
func WithMaxItems[V any](n int) Option[V] {
	return func(s *Store[V]) {
		if n > 0 {
			s.maxItems = n
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(s *Store[V]) { s.now = now }
}

// WithEvict is called for every entry the sweep removes.
func WithEvict[V any](fn func(key string, v V)) Option[V] {
	return func(s *Store[V]) { s.onEvict = fn }
}

// New starts a store and its cleanup goroutine. Call Close to stop it.
func New[V any](opts ...Option[V]) *Store[V] {
	s := &Store[V]{
		data:     make(map[string]*item[V]),
		maxItems: defaultMaxItems,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.cleanupLoop()
	return s
}

// Set stores value under key for ttl.
func (s *Store[V]) Set(key string, value V, ttl time.Duration) error {
	if len(key) > maxKeyLength {
		logging.DebugLog("Ephemeral set failed: key too long [%s] (length: %d)", utils.HashID(key), len(key))
		return ErrTooLong
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; !exists && len(s.data) >= s.maxItems {
		logging.WarnLog("Ephemeral set failed: store full (size: %d)", len(s.data))
		return ErrStoreFull
	}

	s.data[key] = &item[V]{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

// Get returns the live value for key.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero V
	it, ok := s.data[key]
	if !ok || s.now().After(it.expiresAt) {
		return zero, false
	}
	return it.value, true
}

// Touch extends a live entry's lifetime to ttl from now.
func (s *Store[V]) Touch(key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.data[key]
	if !ok || s.now().After(it.expiresAt) {
		return false
	}
	it.expiresAt = s.now().Add(ttl)
	return true
}

// Delete removes key.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Len counts stored entries, including expired ones not yet swept.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Sweep removes expired entries and returns how many were removed.
func (s *Store[V]) Sweep() int {
	now := s.now()
	removed := 0
	var evicted []func()

	s.mu.Lock()
	for k, v := range s.data {
		if now.After(v.expiresAt) {
			delete(s.data, k)
			removed++
			if s.onEvict != nil {
				key, val := k, v.value
				evicted = append(evicted, func() { s.onEvict(key, val) })
			}
		}
	}
	s.mu.Unlock()

	for _, fn := range evicted {
		fn()
	}
	return removed
}

func (s *Store[V]) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logging.InfoLog("Ephemeral cleanup: removed %d expired items (current size: %d)", n, s.Len())
			}
		}
	}
}

// Close stops the cleanup goroutine.
func (s *Store[V]) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}
