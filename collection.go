package docstore

import (
	"context"
	"time"

	"github.com/autom8ter/docstore/errors"
	"golang.org/x/sync/errgroup"
)

// Collection binds one named collection's persistence primitives, query execution
// and schema evolution operations to a store. Collections are safe for concurrent
// use; no operation spans more than one document atomically.
type Collection struct {
	name     string
	store    Store
	codec    ObjectCodec
	compiler *QueryCompiler
	executor *Executor
	ids      *SessionIDs
	logger   Logger
}

// NewCollection returns a collection bound to the store. A nil codec falls back to
// the default codec; a nil id cache gets a fresh in memory one.
func NewCollection(name string, store Store, codec ObjectCodec, ids *SessionIDs, logger Logger) *Collection {
	if codec == nil {
		codec = NewCodec()
	}
	if ids == nil {
		ids = NewSessionIDs(nil)
	}
	return &Collection{
		name:     name,
		store:    store,
		codec:    codec,
		compiler: NewQueryCompiler(codec),
		executor: NewExecutor(store, codec, ids, logger),
		ids:      ids,
		logger:   logger,
	}
}

// Name returns the collection's name
func (c *Collection) Name() string {
	return c.name
}

// ObservedIDs returns the session scoped cache of identifiers observed by queries
// issued through this collection
func (c *Collection) ObservedIDs() *SessionIDs {
	return c.ids
}

// Insert encodes the object and persists it as a new document, returning the
// document's identifier. Inserting an identifier that already exists fails with a
// Duplicate error.
func (c *Collection) Insert(ctx context.Context, obj any) (string, error) {
	doc, err := c.codec.ToDocument(obj)
	if err != nil {
		return "", err
	}
	if err := c.store.Insert(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID(), nil
}

// Replace encodes the object and replaces the persisted document carrying its
// identifier. Replacing an identifier that does not exist fails with a NotFound
// error.
func (c *Collection) Replace(ctx context.Context, obj any) error {
	doc, err := c.codec.ToDocument(obj)
	if err != nil {
		return err
	}
	id := objectID(obj)
	if id == "" {
		return errors.New(errors.Validation, "replace: object carries no identifier")
	}
	found, err := c.store.FindAndReplace(ctx, id, doc)
	if err != nil {
		return err
	}
	if !found {
		return errors.New(errors.NotFound, "%s: no document with id '%s'", c.name, id)
	}
	return nil
}

// Delete removes the persisted document carrying the object's identifier. Deleting
// an identifier that does not exist fails with a NotFound error.
func (c *Collection) Delete(ctx context.Context, obj any) error {
	id := objectID(obj)
	if id == "" {
		return errors.New(errors.Validation, "delete: object carries no identifier")
	}
	found, err := c.store.FindAndRemove(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return errors.New(errors.NotFound, "%s: no document with id '%s'", c.name, id)
	}
	return nil
}

// Get returns the decoded object carrying the given identifier
func (c *Collection) Get(ctx context.Context, id string) (any, error) {
	eq, err := c.compiler.Compile(NewQuery().Where(idFilter(id)).Limit(1))
	if err != nil {
		return nil, err
	}
	iterator, err := c.executor.Iterate(ctx, eq)
	if err != nil {
		return nil, err
	}
	defer iterator.Close()
	if !iterator.Next() {
		if err := iterator.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New(errors.NotFound, "%s: no document with id '%s'", c.name, id)
	}
	return iterator.Value(), nil
}

// Exists reports whether a document carrying the given identifier exists
func (c *Collection) Exists(ctx context.Context, id string) (bool, error) {
	eq, err := c.compiler.Compile(NewQuery().Where(idFilter(id)).Limit(1))
	if err != nil {
		return false, err
	}
	count, err := c.executor.Count(ctx, eq)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Query compiles and runs the query, returning an iterator over the decoded
// results. Callers that do not drain the iterator must Close it.
func (c *Collection) Query(ctx context.Context, q *Query) (*Iterator, error) {
	eq, err := c.compiler.Compile(q)
	if err != nil {
		return nil, err
	}
	return c.executor.Iterate(ctx, eq)
}

// QueryIDs compiles and runs the query, returning only the matching identifiers in
// the order Query would return them
func (c *Collection) QueryIDs(ctx context.Context, q *Query) ([]string, error) {
	eq, err := c.compiler.Compile(q)
	if err != nil {
		return nil, err
	}
	return c.executor.IDs(ctx, eq)
}

// Count returns the number of documents matching the query
func (c *Collection) Count(ctx context.Context, q *Query) (int, error) {
	eq, err := c.compiler.Compile(q)
	if err != nil {
		return 0, err
	}
	return c.executor.Count(ctx, eq)
}

// ForEach compiles and runs the query, passing each decoded result to fn until the
// results are exhausted or fn returns false or an error
func (c *Collection) ForEach(ctx context.Context, q *Query, fn func(obj any) (bool, error)) error {
	eq, err := c.compiler.Compile(q)
	if err != nil {
		return err
	}
	return c.executor.ForEach(ctx, eq, fn)
}

// Page is a page of decoded results
type Page struct {
	// Results are the decoded objects that make up the page
	Results []any `json:"results"`
	// NextPage is the number of the next page
	NextPage int `json:"next_page"`
	// Count is the number of results in the page
	Count int `json:"count"`
	// Stats are statistics collected while getting the page
	Stats PageStats `json:"stats"`
}

// PageStats are statistics collected from a query returning a page
type PageStats struct {
	// ExecutionTime is the time it took to get the page
	ExecutionTime time.Duration `json:"execution_time"`
}

// GetPage compiles and runs the query with the query's own skip and limit replaced
// by the page bounds. Pages are numbered from zero.
func (c *Collection) GetPage(ctx context.Context, q *Query, page int, pageSize int) (*Page, error) {
	if page < 0 || pageSize <= 0 {
		return nil, errors.New(errors.Validation, "page: page must be >= 0 and page size must be > 0")
	}
	eq, err := c.compiler.Compile(q)
	if err != nil {
		return nil, err
	}
	eq.Skip = page * pageSize
	eq.Limit = pageSize
	start := time.Now()
	iterator, err := c.executor.Iterate(ctx, eq)
	if err != nil {
		return nil, err
	}
	defer iterator.Close()
	results := make([]any, 0, pageSize)
	for iterator.Next() {
		results = append(results, iterator.Value())
	}
	if err := iterator.Err(); err != nil {
		return nil, err
	}
	return &Page{
		Results:  results,
		NextPage: page + 1,
		Count:    len(results),
		Stats: PageStats{
			ExecutionTime: time.Since(start),
		},
	}, nil
}

// CreateIndexes ensures one ascending index per field. Indexes are ensured
// concurrently; re-ensuring an existing index is a no-op.
func (c *Collection) CreateIndexes(ctx context.Context, fields ...Field) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, field := range fields {
		field := field
		group.Go(func() error {
			if field.Name == "" {
				return errors.New(errors.Validation, "index: empty field name")
			}
			return c.store.EnsureIndex(ctx, field.Name, DirectionAsc)
		})
	}
	return group.Wait()
}

// RemoveField unsets the field on every document where it exists and returns the
// number of documents changed. Each document updates atomically; the operation as
// a whole is not transactional and is safe to re-run.
func (c *Collection) RemoveField(ctx context.Context, field string) (int64, error) {
	criteria, err := c.compiler.filters.Compile(FieldFilter{Field: F(field, KindAny), Op: OpExists, Value: true})
	if err != nil {
		return 0, err
	}
	return c.store.UpdateMany(ctx, criteria, NewUpdate().Unset(field), false, true)
}

// RenameField moves the old field's value to the new field on every document where
// the old field exists and returns the number of documents changed. Same atomicity
// as RemoveField.
func (c *Collection) RenameField(ctx context.Context, oldField, newField string) (int64, error) {
	if oldField == "" || newField == "" {
		return 0, errors.New(errors.Validation, "rename: field names must not be empty")
	}
	criteria, err := c.compiler.filters.Compile(FieldFilter{Field: F(oldField, KindAny), Op: OpExists, Value: true})
	if err != nil {
		return 0, err
	}
	return c.store.UpdateMany(ctx, criteria, NewUpdate().Rename(oldField, newField), false, true)
}

// ReplaceRevisionClass sets the class discriminator to className on every document
// whose revision marker equals revision, and returns the number of documents
// changed. Documents already carrying the class are left alone, so a second run
// over a fully migrated collection reports zero.
func (c *Collection) ReplaceRevisionClass(ctx context.Context, revision any, className string) (int64, error) {
	if className == "" {
		return 0, errors.New(errors.Validation, "replace revision class: empty class name")
	}
	criteria, err := c.compiler.filters.Compile(And(
		FieldFilter{Field: F(RevisionField, KindAny), Op: OpEq, Value: revision},
		FieldFilter{Field: F(ClassField, KindString), Op: OpNeq, Value: className},
	))
	if err != nil {
		return 0, err
	}
	modified, err := c.store.UpdateMany(ctx, criteria, NewUpdate().Set(ClassField, className), false, true)
	if err != nil {
		return 0, err
	}
	if c.logger != nil {
		c.logger.Info(ctx, "replaced revision class", map[string]any{
			"collection": c.name,
			"revision":   revision,
			"class":      className,
			"modified":   modified,
		})
	}
	return modified, nil
}

// Size returns the number of documents in the collection
func (c *Collection) Size(ctx context.Context) (int, error) {
	return c.Count(ctx, NewQuery())
}

// DropAll irreversibly removes the collection's documents and indexes
func (c *Collection) DropAll(ctx context.Context) error {
	if err := c.store.Drop(ctx); err != nil {
		return err
	}
	if c.logger != nil {
		c.logger.Info(ctx, "dropped collection", map[string]any{"collection": c.name})
	}
	return nil
}

// idFilter matches the document carrying the given identifier
func idFilter(id string) FieldFilter {
	return FieldFilter{Field: F(DocumentIDField, KindString), Op: OpEq, Value: id}
}

// objectID resolves the identifier an object carries, if any
func objectID(obj any) string {
	switch o := obj.(type) {
	case *Document:
		return o.ID()
	case Identifiable:
		return o.DocumentID()
	}
	return ""
}
