package docstore

import (
	"context"
	"time"
)

// Action is the kind of change an event describes
type Action string

const (
	// ActionInsert is the creation of a new document
	ActionInsert Action = "insert"
	// ActionReplace is the wholesale replacement of an existing document
	ActionReplace Action = "replace"
	// ActionUpdate is a partial update of an existing document
	ActionUpdate Action = "update"
	// ActionDelete is the removal of a document
	ActionDelete Action = "delete"
)

// Event describes one committed change to a document. Stores publish events on a
// channel named after the collection after the change is durable.
type Event struct {
	// Collection is the collection the change happened in
	Collection string `json:"collection"`
	// Action is the kind of change
	Action Action `json:"action"`
	// DocumentID is the identifier of the changed document
	DocumentID string `json:"documentId"`
	// Document is the document after the change; deletes carry the removed document
	Document *Document `json:"document,omitempty"`
	// Timestamp is when the change was committed
	Timestamp time.Time `json:"timestamp"`
}

// EventHandler handles change events for a collection. Returning false stops the
// subscription; returning an error stops it and surfaces the error.
type EventHandler func(ctx context.Context, event Event) (bool, error)
