// Package feed keeps a live view of the events collection and posts new
// events on behalf of signed-in users.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/devink/campusconnect/internal/logging"
	"github.com/devink/campusconnect/internal/models"
	"github.com/devink/campusconnect/internal/utils"
	"github.com/devink/campusconnect/store"
)

// ErrEmptyTitle is returned by CreateEvent for a blank title.
var ErrEmptyTitle = errors.New("event title is empty")

const (
	defaultDescription = "Описание мероприятия"
	unknownUniversity  = "Неизвестный вуз"
)

// MergePolicy says how an incoming snapshot is combined with the current view.
type MergePolicy int

const (
	// ReplaceSnapshot discards the current view; the last snapshot wins.
	ReplaceSnapshot MergePolicy = iota
)

// Feed is a subscribed view of models.EventsCollection.
type Feed struct {
	docs   store.Documents
	policy MergePolicy
	hub    *Hub
	now    func() time.Time

	mu      sync.RWMutex
	events  []models.Event
	loading bool
	cancel  func()
}

// Option configures a Feed.
type Option func(*Feed)

// WithHub publishes every applied snapshot to hub.
func WithHub(h *Hub) Option { return func(f *Feed) { f.hub = h } }

// WithClock overrides the clock used for event dates.
func WithClock(now func() time.Time) Option { return func(f *Feed) { f.now = now } }

// New creates a feed. Call Start to subscribe.
func New(docs store.Documents, policy MergePolicy, opts ...Option) *Feed {
	f := &Feed{
		docs:    docs,
		policy:  policy,
		now:     time.Now,
		events:  []models.Event{},
		loading: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start subscribes to the events collection. It is a no-op if already started.
func (f *Feed) Start() {
	f.mu.Lock()
	started := f.cancel != nil
	f.mu.Unlock()
	if started {
		return
	}

	cancel := f.docs.Subscribe(models.EventsCollection, f.apply, f.fail)
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()
}

// Stop cancels the subscription.
func (f *Feed) Stop() {
	f.mu.Lock()
	cancel := f.cancel
	f.cancel = nil
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Loading is true until the first snapshot or subscription error.
func (f *Feed) Loading() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loading
}

// Events returns a copy of the current view.
func (f *Feed) Events() []models.Event {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]models.Event{}, f.events...)
}

func (f *Feed) apply(snap store.Snapshot) {
	incoming := make([]models.Event, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		var ev models.Event
		if err := store.Decode(doc, &ev); err != nil {
			logging.WarnLog("Feed: skipping undecodable event [%s]: %v", utils.HashID(doc.ID), err)
			continue
		}
		if ev.Participants == nil {
			ev.Participants = []string{}
		}
		incoming = append(incoming, ev)
	}

	f.mu.Lock()
	switch f.policy {
	case ReplaceSnapshot:
		f.events = incoming
	default:
		f.mu.Unlock()
		panic(fmt.Sprintf("feed: unknown merge policy %d", f.policy))
	}
	f.loading = false
	view := append([]models.Event{}, f.events...)
	f.mu.Unlock()

	logging.DebugLog("Feed: applied snapshot with %d events", len(view))
	if f.hub != nil {
		f.hub.Notify(view)
	}
}

func (f *Feed) fail(err error) {
	logging.ErrorLog("Feed: subscription error: %v", err)
	f.mu.Lock()
	f.loading = false
	f.mu.Unlock()
}

// CreateEvent posts an event owned by uid. University and city come from
// the owner's profile when it can be read.
func (f *Feed) CreateEvent(ctx context.Context, uid, title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", ErrEmptyTitle
	}

	var profile models.AccountProfile
	if doc, err := f.docs.Get(ctx, models.UsersCollection, uid); err == nil {
		if err := store.Decode(doc, &profile); err != nil {
			logging.WarnLog("Feed: owner profile undecodable uid=[%s]: %v", utils.HashID(uid), err)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		logging.ErrorLog("Feed: owner profile read failed uid=[%s]: %v", utils.HashID(uid), err)
	}

	location := profile.University
	if location == "" {
		location = unknownUniversity
	}

	id, err := f.docs.Add(ctx, models.EventsCollection, store.Fields{
		"title":        title,
		"description":  defaultDescription,
		"date":         f.now().UTC(),
		"location":     location,
		"university":   profile.University,
		"city":         profile.City,
		"ownerId":      uid,
		"participants": []string{},
		"createdAt":    store.ServerTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}
	logging.InfoLog("Feed: event [%s] created by uid=[%s]", utils.HashID(id), utils.HashID(uid))
	return id, nil
}
