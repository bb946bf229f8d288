package docstore

import (
	"context"
)

// Store is the backend contract consumed by the execution pipeline: one collection
// of json documents addressed by the reserved _id field. Implementations return
// coded errors from the errors package where the condition is theirs to detect
// (Duplicate on identifier collisions in particular).
type Store interface {
	// Insert persists a new document. Inserting an identifier that already
	// exists fails with a Duplicate error.
	Insert(ctx context.Context, doc *Document) error
	// FindAndReplace replaces the document carrying the given identifier and
	// reports whether a document was replaced.
	FindAndReplace(ctx context.Context, id string, doc *Document) (bool, error)
	// FindAndRemove removes the document carrying the given identifier and
	// reports whether a document was removed.
	FindAndRemove(ctx context.Context, id string) (bool, error)
	// Find returns a cursor over the documents matching the criteria, projected
	// to the given fields. An empty projection returns documents whole.
	Find(ctx context.Context, criteria *Criteria, projection []string) (DocumentCursor, error)
	// UpdateMany applies the update to the documents matching the criteria and
	// returns the number of documents the update changed. When upsert is true a
	// missing match inserts the update's set fields as a new document; when
	// multi is false at most one document is updated.
	UpdateMany(ctx context.Context, criteria *Criteria, update *Update, upsert bool, multi bool) (int64, error)
	// EnsureIndex creates an index over the field if one does not already
	// exist. Re-ensuring an existing index is a no-op.
	EnsureIndex(ctx context.Context, field string, direction Direction) error
	// Drop removes the collection, its documents and its indexes.
	Drop(ctx context.Context) error
}

// DocumentCursor is a live handle over a result set, acquired from Find and released
// by Close. Skip, Limit and Sort configure the cursor and must be called before the
// first Next. Callers that do not drain the cursor must Close it; Close is safe to
// call multiple times.
type DocumentCursor interface {
	// Skip discards the first n documents of the result set
	Skip(n int) DocumentCursor
	// Limit caps the number of documents the cursor yields
	Limit(n int) DocumentCursor
	// Sort orders the result set; the first spec is the primary sort key and
	// later specs break ties
	Sort(specs ...SortSpec) DocumentCursor
	// Next advances the cursor and reports whether a document is available
	Next() bool
	// Document returns the document the cursor is positioned on
	Document() *Document
	// Err returns the first error encountered while iterating
	Err() error
	// Size returns the number of documents in the result set
	Size() (int, error)
	// Close releases the cursor
	Close() error
}
