package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devink/campusconnect/internal/models"
	"github.com/devink/campusconnect/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := store.OpenDB(":memory:")
	require.NoError(t, err)
	s, err := store.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFeedLoadsInitialSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Add(ctx, models.EventsCollection, store.Fields{"title": "Хакатон", "ownerId": "u1"})
	require.NoError(t, err)

	f := New(s, ReplaceSnapshot)
	assert.True(t, f.Loading())
	f.Start()
	defer f.Stop()

	assert.False(t, f.Loading())
	events := f.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "Хакатон", events[0].Title)
	assert.NotNil(t, events[0].Participants)
}

func TestCreateEventUsesProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, models.UsersCollection, "u1", store.Fields{
		"university": "ИТМО",
		"city":       "Санкт-Петербург",
	}))

	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	hub := NewHub(nil)
	f := New(s, ReplaceSnapshot, WithHub(hub), WithClock(func() time.Time { return now }))
	f.Start()
	defer f.Stop()

	ch := hub.Register("w1")
	defer hub.Delete("w1")

	id, err := f.CreateEvent(ctx, "u1", "Лекция")
	require.NoError(t, err)

	events := f.Events()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, id, ev.ID)
	assert.Equal(t, "Лекция", ev.Title)
	assert.Equal(t, "Описание мероприятия", ev.Description)
	assert.Equal(t, "ИТМО", ev.Location)
	assert.Equal(t, "ИТМО", ev.University)
	assert.Equal(t, "Санкт-Петербург", ev.City)
	assert.Equal(t, "u1", ev.OwnerID)
	assert.Empty(t, ev.Participants)
	assert.True(t, now.Equal(ev.Date))
	assert.False(t, ev.CreatedAt.IsZero())

	select {
	case got := <-ch:
		require.Len(t, got, 1)
		assert.Equal(t, id, got[0].ID)
	case <-time.After(time.Second):
		t.Fatal("watcher did not receive snapshot")
	}
}

func TestCreateEventWithoutProfile(t *testing.T) {
	s := newTestStore(t)
	f := New(s, ReplaceSnapshot)
	f.Start()
	defer f.Stop()

	_, err := f.CreateEvent(context.Background(), "ghost", "Встреча")
	require.NoError(t, err)
	assert.Equal(t, "Неизвестный вуз", f.Events()[0].Location)
}

func TestCreateEventRejectsBlankTitle(t *testing.T) {
	s := newTestStore(t)
	f := New(s, ReplaceSnapshot)
	f.Start()
	defer f.Stop()

	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := f.CreateEvent(context.Background(), "u1", title)
		assert.ErrorIs(t, err, ErrEmptyTitle)
	}
	assert.Empty(t, f.Events())
}

func TestReplaceSnapshotLastWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := New(s, ReplaceSnapshot)
	f.Start()
	defer f.Stop()

	for _, title := range []string{"a", "b", "c"} {
		_, err := f.CreateEvent(ctx, "u1", title)
		require.NoError(t, err)
	}
	events := f.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "a", events[0].Title)
	assert.Equal(t, "c", events[2].Title)
}

type failingDocs struct{ store.Documents }

func (failingDocs) Subscribe(_ string, _ func(store.Snapshot), onError func(error)) func() {
	onError(errors.New("permission denied"))
	return func() {}
}

func TestSubscriptionErrorStopsLoading(t *testing.T) {
	f := New(failingDocs{}, ReplaceSnapshot)
	f.Start()
	assert.False(t, f.Loading())
	assert.Empty(t, f.Events())
}

func TestStopDetaches(t *testing.T) {
	s := newTestStore(t)
	f := New(s, ReplaceSnapshot)
	f.Start()
	f.Stop()

	_, err := s.Add(context.Background(), models.EventsCollection, store.Fields{"title": "late"})
	require.NoError(t, err)
	assert.Empty(t, f.Events())
}
