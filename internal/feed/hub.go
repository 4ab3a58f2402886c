package feed

import (
	"sync"

	"github.com/devink/campusconnect/internal/logging"
	"github.com/devink/campusconnect/internal/models"
	"github.com/devink/campusconnect/internal/utils"
)

// Hub fans feed snapshots out to watchers. Each watcher has a one-slot
// buffer holding the newest snapshot it has not read yet.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]chan []models.Event
	onCount  func(int)
}

// NewHub creates an empty hub. onCount, if set, receives the watcher count
// after every change.
func NewHub(onCount func(int)) *Hub {
	return &Hub{
		channels: make(map[string]chan []models.Event),
		onCount:  onCount,
	}
}

// Register adds a watcher and returns its channel.
func (h *Hub) Register(id string) <-chan []models.Event {
	h.mu.Lock()
	ch := make(chan []models.Event, 1)
	h.channels[id] = ch
	n := len(h.channels)
	h.mu.Unlock()

	logging.DebugLog("Feed hub: registered watcher [%s]", utils.HashID(id))
	h.count(n)
	return ch
}

// Notify offers events to every watcher without blocking. A watcher that
// has not consumed the previous snapshot gets it replaced.
func (h *Hub) Notify(events []models.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.channels {
		select {
		case ch <- events:
			continue
		default:
		}
		// Drop the stale snapshot and retry once.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- events:
		default:
			logging.DebugLog("Feed hub: watcher [%s] busy, snapshot dropped", utils.HashID(id))
		}
	}
}

// Delete removes a watcher and closes its channel.
func (h *Hub) Delete(id string) {
	h.mu.Lock()
	ch, ok := h.channels[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	close(ch)
	delete(h.channels, id)
	n := len(h.channels)
	h.mu.Unlock()

	logging.DebugLog("Feed hub: removed watcher [%s]", utils.HashID(id))
	h.count(n)
}

// Count returns the number of registered watchers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

func (h *Hub) count(n int) {
	if h.onCount != nil {
		h.onCount(n)
	}
}
