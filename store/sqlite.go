package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/devink/campusconnect/internal/logging"
	"github.com/google/uuid"
)

const documentsSchema = `
	CREATE TABLE IF NOT EXISTS documents (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		collection TEXT NOT NULL CHECK(collection <> ''),
		id TEXT NOT NULL CHECK(id <> ''),
		data TEXT NOT NULL,
		UNIQUE(collection, id)
	);`

type subscription struct {
	collection string
	onSnapshot func(Snapshot)
	onError    func(error)
}

// SQLiteStore implements Documents on a SQLite table of JSON documents.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time

	mu        sync.Mutex
	nextID    uint64
	subs      map[uint64]*subscription
	listeners map[uint64]func(collection string)

	// deliverMu orders snapshot deliveries so the newest state always arrives last.
	deliverMu sync.Mutex
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock overrides the clock used for ServerTimestamp.
func WithClock(now func() time.Time) Option { return func(s *SQLiteStore) { s.now = now } }

// NewSQLiteStore creates the documents table if needed.
func NewSQLiteStore(db *sql.DB, opts ...Option) (*SQLiteStore, error) {
	if _, err := db.Exec(documentsSchema); err != nil {
		return nil, fmt.Errorf("create documents schema: %w", err)
	}
	s := &SQLiteStore{
		db:        db,
		now:       time.Now,
		subs:      make(map[uint64]*subscription),
		listeners: make(map[uint64]func(string)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SQLiteStore) encode(fields Fields) (string, error) {
	resolved := make(Fields, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			v = s.now().UTC()
		}
		resolved[k] = v
	}
	raw, err := json.Marshal(resolved)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(raw), nil
}

// Set writes (creates or replaces) the document collection/id.
func (s *SQLiteStore) Set(ctx context.Context, collection, id string, fields Fields) error {
	data, err := s.encode(fields)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES (?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data`,
		collection, id, data)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	s.changed(collection)
	return nil
}

// Add inserts a document under a fresh id and returns the id.
func (s *SQLiteStore) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	data, err := s.encode(fields)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES (?, ?, ?)`, collection, id, data); err != nil {
		return "", fmt.Errorf("add to %s: %w", collection, err)
	}
	s.changed(collection)
	return id, nil
}

// Get reads one document; ErrNotFound when absent.
func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM documents
		WHERE collection = ? AND id = ?`, collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	doc := Document{ID: id}
	if err := json.Unmarshal([]byte(data), &doc.Fields); err != nil {
		return Document{}, fmt.Errorf("get %s/%s: corrupt document: %w", collection, id, err)
	}
	return doc, nil
}

func (s *SQLiteStore) snapshot(ctx context.Context, collection string) (Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data FROM documents
		WHERE collection = ?
		ORDER BY seq`, collection)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", collection, err)
	}
	defer rows.Close()

	snap := Snapshot{Collection: collection, Docs: []Document{}}
	for rows.Next() {
		var (
			doc  Document
			data string
		)
		if err := rows.Scan(&doc.ID, &data); err != nil {
			return Snapshot{}, fmt.Errorf("snapshot %s: %w", collection, err)
		}
		if err := json.Unmarshal([]byte(data), &doc.Fields); err != nil {
			return Snapshot{}, fmt.Errorf("snapshot %s: corrupt document %s: %w", collection, doc.ID, err)
		}
		snap.Docs = append(snap.Docs, doc)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", collection, err)
	}
	return snap, nil
}

// Subscribe registers callbacks for collection and delivers the current
// snapshot before returning. Callbacks run on the writer's goroutine and
// must not write to the store.
func (s *SQLiteStore) Subscribe(collection string, onSnapshot func(Snapshot), onError func(error)) func() {
	sub := &subscription{collection: collection, onSnapshot: onSnapshot, onError: onError}

	s.deliverMu.Lock()
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = sub
	s.mu.Unlock()

	snap, err := s.snapshot(context.Background(), collection)
	deliver(sub, snap, err)
	s.deliverMu.Unlock()

	logging.DebugLog("Store subscription %d opened on %s", id, collection)
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			logging.DebugLog("Store subscription %d closed on %s", id, collection)
		})
	}
}

// OnChange registers fn to run after every local write. It returns a function
// that removes the listener.
func (s *SQLiteStore) OnChange(fn func(collection string)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Refresh re-reads collection and delivers a snapshot to its subscribers
// without firing change listeners. Used when another process wrote the data.
func (s *SQLiteStore) Refresh(collection string) {
	s.publish(collection)
}

func (s *SQLiteStore) changed(collection string) {
	s.publish(collection)

	s.mu.Lock()
	listeners := make([]func(string), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(collection)
	}
}

func (s *SQLiteStore) publish(collection string) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	var targets []*subscription
	for _, sub := range s.subs {
		if sub.collection == collection {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()
	if len(targets) == 0 {
		return
	}

	snap, err := s.snapshot(context.Background(), collection)
	for _, sub := range targets {
		deliver(sub, snap, err)
	}
}

func deliver(sub *subscription, snap Snapshot, err error) {
	if err != nil {
		logging.ErrorLog("Store snapshot delivery failed on %s: %v", sub.collection, err)
		if sub.onError != nil {
			sub.onError(err)
		}
		return
	}
	if sub.onSnapshot != nil {
		sub.onSnapshot(snap)
	}
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
