package docstore

import (
	"context"

	"github.com/autom8ter/docstore/errors"
	"github.com/spf13/cast"
)

// Executor runs compiled queries against a store and surfaces results as lazily
// decoded iterators. Identifiers observed while iterating are recorded in the
// session id cache as a side effect. The executor adds no retry logic; store
// failures propagate to the caller wrapped with the Store error code.
type Executor struct {
	store  Store
	codec  ObjectCodec
	ids    *SessionIDs
	logger Logger
}

// NewExecutor returns an executor bound to the store. A nil codec falls back to the
// default codec; a nil id cache gets a fresh in memory one.
func NewExecutor(store Store, codec ObjectCodec, ids *SessionIDs, logger Logger) *Executor {
	if codec == nil {
		codec = NewCodec()
	}
	if ids == nil {
		ids = NewSessionIDs(nil)
	}
	return &Executor{
		store:  store,
		codec:  codec,
		ids:    ids,
		logger: logger,
	}
}

// IDCache returns the session id cache the executor records into
func (e *Executor) IDCache() *SessionIDs {
	return e.ids
}

func (e *Executor) open(ctx context.Context, eq *ExecutableQuery) (DocumentCursor, error) {
	if eq == nil {
		return nil, errors.New(errors.Validation, "nil query")
	}
	if e.logger != nil {
		e.logger.Debug(ctx, "executing query", map[string]any{
			"criteria": eq.Criteria.String(),
			"sort":     eq.Sort,
			"skip":     eq.Skip,
			"limit":    eq.Limit,
		})
	}
	cursor, err := e.store.Find(ctx, eq.Criteria, eq.Projection)
	if err != nil {
		return nil, storeError(err, "failed to open cursor")
	}
	if len(eq.Sort) > 0 {
		cursor.Sort(eq.Sort...)
	}
	if eq.Skip > 0 {
		cursor.Skip(eq.Skip)
	}
	if eq.Limit > 0 {
		cursor.Limit(eq.Limit)
	}
	return cursor, nil
}

// Iterate opens a forward only pass over the documents matching the query, decoding
// each into an object of its class. A fresh call re-issues the query. Callers that
// do not drain the iterator must Close it.
func (e *Executor) Iterate(ctx context.Context, eq *ExecutableQuery) (*Iterator, error) {
	cursor, err := e.open(ctx, eq)
	if err != nil {
		return nil, err
	}
	return &Iterator{
		cursor: cursor,
		decode: func(doc *Document) (any, error) {
			obj, err := e.codec.FromDocument(doc)
			if err != nil {
				return nil, err
			}
			e.record(obj, doc)
			return obj, nil
		},
	}, nil
}

// IterateIDs opens a pass over the identifiers of the documents matching the query,
// skipping full decoding. It yields the same identifiers in the same order as
// Iterate would for the same query.
func (e *Executor) IterateIDs(ctx context.Context, eq *ExecutableQuery) (*Iterator, error) {
	idQuery := *eq
	idQuery.Projection = []string{DocumentIDField}
	cursor, err := e.open(ctx, &idQuery)
	if err != nil {
		return nil, err
	}
	return &Iterator{
		cursor: cursor,
		decode: func(doc *Document) (any, error) {
			id := doc.ID()
			if id == "" {
				return nil, errors.New(errors.Internal, "document missing an identifier")
			}
			e.ids.Add(id)
			return id, nil
		},
	}, nil
}

// IDs drains IterateIDs into a slice
func (e *Executor) IDs(ctx context.Context, eq *ExecutableQuery) ([]string, error) {
	iterator, err := e.IterateIDs(ctx, eq)
	if err != nil {
		return nil, err
	}
	defer iterator.Close()
	var ids []string
	for iterator.Next() {
		ids = append(ids, cast.ToString(iterator.Value()))
	}
	return ids, iterator.Err()
}

// Count returns the number of documents matching the query. The cursor is released
// on every path, including when the store fails while counting.
func (e *Executor) Count(ctx context.Context, eq *ExecutableQuery) (int, error) {
	cursor, err := e.open(ctx, eq)
	if err != nil {
		return 0, err
	}
	defer cursor.Close()
	size, err := cursor.Size()
	if err != nil {
		return 0, storeError(err, "failed to count documents")
	}
	return size, nil
}

// storeError wraps a store failure with the Store code. Failures that already
// carry a code keep it.
func storeError(err error, msg string, args ...any) error {
	if errors.Extract(err).Code > 0 {
		return errors.Wrap(err, 0, msg, args...)
	}
	return errors.Wrap(err, errors.Store, msg, args...)
}

// ForEach runs fn over each decoded result until the results are exhausted or fn
// returns false or an error. The cursor is always released.
func (e *Executor) ForEach(ctx context.Context, eq *ExecutableQuery, fn func(obj any) (bool, error)) error {
	iterator, err := e.Iterate(ctx, eq)
	if err != nil {
		return err
	}
	defer iterator.Close()
	for iterator.Next() {
		proceed, err := fn(iterator.Value())
		if err != nil {
			return err
		}
		if !proceed {
			break
		}
	}
	return iterator.Err()
}

// record notes an observed identifier in the session id cache, preferring the id
// the decoded object carries over the raw document's.
func (e *Executor) record(obj any, doc *Document) {
	if identifiable, ok := obj.(Identifiable); ok && identifiable.DocumentID() != "" {
		e.ids.Add(identifiable.DocumentID())
		return
	}
	e.ids.Add(doc.ID())
}

// Iterator is a forward only pass over query results. Next advances the iterator
// and reports whether a value is available; iteration stops on the first decode or
// cursor error, surfaced by Err. Callers that do not drain the iterator must Close
// it; Close is safe to call multiple times.
type Iterator struct {
	cursor DocumentCursor
	decode func(doc *Document) (any, error)
	value  any
	err    error
}

// Next advances to the next result and reports whether one is available
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.cursor.Next() {
		it.err = it.cursor.Err()
		return false
	}
	value, err := it.decode(it.cursor.Document())
	if err != nil {
		it.err = err
		return false
	}
	it.value = value
	return true
}

// Value returns the result the iterator is positioned on
func (it *Iterator) Value() any {
	return it.value
}

// Err returns the first error encountered while iterating
func (it *Iterator) Err() error {
	return it.err
}

// Close releases the iterator's cursor
func (it *Iterator) Close() error {
	return it.cursor.Close()
}
