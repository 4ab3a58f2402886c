package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no document has the requested id.
var ErrNotFound = errors.New("document not found")

// Fields is a schemaless document body.
type Fields map[string]any

type serverTimestamp struct{}

// ServerTimestamp may be used as a field value; the store replaces it with
// its own clock at write time.
var ServerTimestamp any = serverTimestamp{}

// Document is a stored document with its id.
type Document struct {
	ID     string `json:"id"`
	Fields Fields `json:"fields"`
}

// Snapshot is the full current content of a collection.
type Snapshot struct {
	Collection string
	Docs       []Document
}

// Documents is a schemaless document database with collection-level change
// subscriptions.
type Documents interface {
	Set(ctx context.Context, collection, id string, fields Fields) error
	Get(ctx context.Context, collection, id string) (Document, error)
	Add(ctx context.Context, collection string, fields Fields) (string, error)
	// Subscribe delivers an initial snapshot and then a full replacement
	// snapshot after every change to the collection.
	Subscribe(collection string, onSnapshot func(Snapshot), onError func(error)) (cancel func())
}

// Decode copies a document's fields (plus its id under "id") into v using
// JSON field names.
func Decode(doc Document, v any) error {
	merged := make(Fields, len(doc.Fields)+1)
	for k, val := range doc.Fields {
		merged[k] = val
	}
	merged["id"] = doc.ID
	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	return nil
}
