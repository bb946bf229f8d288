package docstore

import (
	"bytes"
	"context"
	"time"

	"github.com/autom8ter/docstore/errors"
	"github.com/autom8ter/docstore/internal/keys"
	"github.com/autom8ter/docstore/internal/safe"
	"github.com/autom8ter/docstore/kv"
	"github.com/autom8ter/machine/v4"
	"github.com/ghodss/yaml"
	"github.com/segmentio/ksuid"
)

// KVStore is a Store over a transactional key value backend. Documents live in the
// collection's primary key space; each indexed field keeps one entry per document
// pointing back at the owning document's identifier. Committed changes are
// published to the broker on a channel named after the collection.
type KVStore struct {
	collection string
	db         kv.DB
	broker     machine.Machine
	indexes    *safe.Map[Direction]
	logger     Logger
}

// NewKVStore returns a Store for the collection backed by the key value database.
// Indexes ensured in earlier sessions are reloaded from the backend.
func NewKVStore(ctx context.Context, db kv.DB, broker machine.Machine, collection string, logger Logger) (*KVStore, error) {
	if collection == "" {
		return nil, errors.New(errors.Validation, "empty collection name")
	}
	s := &KVStore{
		collection: collection,
		db:         db,
		broker:     broker,
		indexes:    safe.NewMap[Direction](nil),
		logger:     logger,
	}
	if err := s.loadIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Insert persists a new document. Inserting an identifier that already exists
// fails with a Duplicate error.
func (s *KVStore) Insert(ctx context.Context, doc *Document) error {
	if doc == nil || !doc.Valid() {
		return errors.New(errors.Validation, "%s: invalid document", s.collection)
	}
	id := doc.ID()
	if id == "" {
		return errors.New(errors.Validation, "%s: document missing an identifier", s.collection)
	}
	if err := s.db.Tx(ctx, kv.TxOpts{}, func(ctx context.Context, tx kv.Tx) error {
		existing, err := tx.Get(ctx, keys.Document(s.collection, id))
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return errors.New(errors.Duplicate, "%s: a document with id '%s' already exists", s.collection, id)
		}
		return s.writeDocument(ctx, tx, nil, doc)
	}); err != nil {
		return storeError(err, "%s: insert failed", s.collection)
	}
	s.publish(ctx, ActionInsert, id, doc)
	return nil
}

// FindAndReplace replaces the document carrying the given identifier and reports
// whether a document was replaced
func (s *KVStore) FindAndReplace(ctx context.Context, id string, doc *Document) (bool, error) {
	if id == "" {
		return false, errors.New(errors.Validation, "%s: empty document id", s.collection)
	}
	if doc == nil || !doc.Valid() {
		return false, errors.New(errors.Validation, "%s: invalid document", s.collection)
	}
	replacement := doc.Clone()
	if replacement.ID() != id {
		if err := replacement.SetID(id); err != nil {
			return false, err
		}
	}
	var replaced bool
	if err := s.db.Tx(ctx, kv.TxOpts{}, func(ctx context.Context, tx kv.Tx) error {
		before, err := s.getDocument(ctx, tx, id)
		if err != nil {
			return err
		}
		if before == nil {
			return nil
		}
		if err := s.writeDocument(ctx, tx, before, replacement); err != nil {
			return err
		}
		replaced = true
		return nil
	}); err != nil {
		return false, storeError(err, "%s: replace failed", s.collection)
	}
	if replaced {
		s.publish(ctx, ActionReplace, id, replacement)
	}
	return replaced, nil
}

// FindAndRemove removes the document carrying the given identifier and reports
// whether a document was removed
func (s *KVStore) FindAndRemove(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, errors.New(errors.Validation, "%s: empty document id", s.collection)
	}
	var removed *Document
	if err := s.db.Tx(ctx, kv.TxOpts{}, func(ctx context.Context, tx kv.Tx) error {
		before, err := s.getDocument(ctx, tx, id)
		if err != nil {
			return err
		}
		if before == nil {
			return nil
		}
		if err := s.removeDocument(ctx, tx, before); err != nil {
			return err
		}
		removed = before
		return nil
	}); err != nil {
		return false, storeError(err, "%s: remove failed", s.collection)
	}
	if removed == nil {
		return false, nil
	}
	s.publish(ctx, ActionDelete, id, removed)
	return true, nil
}

// Find returns a cursor over the documents matching the criteria, projected to the
// given fields. The result set is a snapshot taken under one read transaction.
func (s *KVStore) Find(ctx context.Context, criteria *Criteria, projection []string) (DocumentCursor, error) {
	if criteria == nil {
		criteria = NewCriteria()
	}
	var matched Documents
	if err := s.db.Tx(ctx, kv.TxOpts{IsReadOnly: true}, func(ctx context.Context, tx kv.Tx) error {
		documents, err := s.find(ctx, tx, criteria)
		if err != nil {
			return err
		}
		matched = documents
		return nil
	}); err != nil {
		return nil, storeError(err, "%s: find failed", s.collection)
	}
	return newMemCursor(matched, projection), nil
}

// UpdateMany applies the update to the documents matching the criteria and returns
// the number of documents the update changed. Each document updates in its own
// transaction; a failure part way leaves earlier documents updated, which is safe
// because callers' updates are re-runnable.
func (s *KVStore) UpdateMany(ctx context.Context, criteria *Criteria, update *Update, upsert bool, multi bool) (int64, error) {
	if update.IsEmpty() {
		return 0, errors.New(errors.Validation, "%s: empty update", s.collection)
	}
	if criteria == nil {
		criteria = NewCriteria()
	}
	var matched Documents
	if err := s.db.Tx(ctx, kv.TxOpts{IsReadOnly: true}, func(ctx context.Context, tx kv.Tx) error {
		documents, err := s.find(ctx, tx, criteria)
		if err != nil {
			return err
		}
		matched = documents
		return nil
	}); err != nil {
		return 0, storeError(err, "%s: update failed", s.collection)
	}
	if len(matched) == 0 {
		if !upsert {
			return 0, nil
		}
		return s.upsert(ctx, update)
	}
	if !multi {
		matched = matched[:1]
	}
	var changed int64
	for _, before := range matched {
		after, err := update.Apply(before)
		if err != nil {
			return changed, err
		}
		if bytes.Equal(before.Bytes(), after.Bytes()) {
			continue
		}
		if after.ID() != before.ID() {
			return changed, errors.New(errors.Validation, "%s: update must not change the document identifier", s.collection)
		}
		if err := s.db.Tx(ctx, kv.TxOpts{}, func(ctx context.Context, tx kv.Tx) error {
			return s.writeDocument(ctx, tx, before, after)
		}); err != nil {
			return changed, storeError(err, "%s: update failed for document '%s'", s.collection, before.ID())
		}
		changed++
		s.publish(ctx, ActionUpdate, after.ID(), after)
	}
	return changed, nil
}

// upsert inserts the update's set fields as a new document
func (s *KVStore) upsert(ctx context.Context, update *Update) (int64, error) {
	doc, err := update.Apply(NewDocument())
	if err != nil {
		return 0, err
	}
	if doc.ID() == "" {
		if err := doc.SetID(ksuid.New().String()); err != nil {
			return 0, err
		}
	}
	if err := s.Insert(ctx, doc); err != nil {
		return 0, err
	}
	return 1, nil
}

// EnsureIndex creates an index over the field if one does not already exist,
// backfilling entries for existing documents. Re-ensuring an existing index is a
// no-op.
func (s *KVStore) EnsureIndex(ctx context.Context, field string, direction Direction) error {
	if field == "" {
		return errors.New(errors.Validation, "%s: empty index field", s.collection)
	}
	if direction == "" {
		direction = DirectionAsc
	}
	if s.indexes.Exists(field) {
		return nil
	}
	s.indexes.Set(field, direction)
	if err := s.backfillIndex(ctx, field); err != nil {
		s.indexes.Del(field)
		return storeError(err, "%s: failed to build index on '%s'", s.collection, field)
	}
	if err := s.persistIndexes(ctx); err != nil {
		s.indexes.Del(field)
		return storeError(err, "%s: failed to persist index on '%s'", s.collection, field)
	}
	if s.logger != nil {
		s.logger.Info(ctx, "ensured index", map[string]any{
			"collection": s.collection,
			"field":      field,
			"direction":  direction,
		})
	}
	return nil
}

// Drop removes the collection's documents, index entries and configuration
func (s *KVStore) Drop(ctx context.Context) error {
	if err := s.db.DropPrefix(ctx, keys.CollectionPrefix(s.collection)); err != nil {
		return storeError(err, "%s: drop failed", s.collection)
	}
	var fields []string
	s.indexes.Range(func(field string, _ Direction) bool {
		fields = append(fields, field)
		return true
	})
	for _, field := range fields {
		s.indexes.Del(field)
	}
	return nil
}

// find snapshots the documents matching the criteria, through an index when one
// serves a top level equality condition
func (s *KVStore) find(ctx context.Context, tx kv.Tx, criteria *Criteria) (Documents, error) {
	if field, value, ok := s.chooseIndex(criteria); ok {
		if s.logger != nil {
			s.logger.Debug(ctx, "scanning index", map[string]any{"collection": s.collection, "field": field})
		}
		return s.scanIndex(ctx, tx, field, value, criteria)
	}
	return s.scanAll(ctx, tx, criteria)
}

// chooseIndex picks the first top level equality condition addressing an indexed
// field. Null values stay on the scan path: a missing field also satisfies an
// equality against null, and missing fields carry no index entries.
func (s *KVStore) chooseIndex(criteria *Criteria) (string, any, bool) {
	for _, cond := range criteria.Conditions() {
		if cond.Op == OpEq && cond.Field != "" && cond.Value != nil && s.indexes.Exists(cond.Field) {
			return cond.Field, cond.Value, true
		}
	}
	return "", nil, false
}

// scanAll walks the collection's primary key space, in ascending id order
func (s *KVStore) scanAll(ctx context.Context, tx kv.Tx, criteria *Criteria) (Documents, error) {
	iter, err := tx.NewIterator(kv.IterOpts{Prefix: keys.DocumentPrefix(s.collection)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var matched Documents
	for iter.Valid() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bits, err := iter.Value()
		if err != nil {
			return nil, err
		}
		document, err := NewDocumentFromBytes(bits)
		if err != nil {
			return nil, err
		}
		pass, err := criteria.Matches(document)
		if err != nil {
			return nil, err
		}
		if pass {
			matched = append(matched, document)
		}
		if err := iter.Next(); err != nil {
			return nil, err
		}
	}
	return matched, nil
}

// scanIndex walks one field value's index entries and fetches the owning
// documents, re-checking the full criteria against each. Index entries for one
// value sort by id, so the order matches scanAll's.
func (s *KVStore) scanIndex(ctx context.Context, tx kv.Tx, field string, value any, criteria *Criteria) (Documents, error) {
	iter, err := tx.NewIterator(kv.IterOpts{Prefix: keys.IndexValuePrefix(s.collection, field, value)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var matched Documents
	for iter.Valid() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		document, err := s.getDocument(ctx, tx, keys.DocumentID(iter.Key()))
		if err != nil {
			return nil, err
		}
		if document != nil {
			pass, err := criteria.Matches(document)
			if err != nil {
				return nil, err
			}
			if pass {
				matched = append(matched, document)
			}
		}
		if err := iter.Next(); err != nil {
			return nil, err
		}
	}
	return matched, nil
}

// getDocument fetches a document by id; a missing id returns a nil document
func (s *KVStore) getDocument(ctx context.Context, tx kv.Tx, id string) (*Document, error) {
	bits, err := tx.Get(ctx, keys.Document(s.collection, id))
	if err != nil {
		return nil, err
	}
	if len(bits) == 0 {
		return nil, nil
	}
	return NewDocumentFromBytes(bits)
}

// writeDocument writes the document and reconciles its index entries against the
// previous revision, all within the caller's transaction
func (s *KVStore) writeDocument(ctx context.Context, tx kv.Tx, before, after *Document) error {
	id := after.ID()
	if err := tx.Set(ctx, keys.Document(s.collection, id), after.Bytes()); err != nil {
		return err
	}
	var indexErr error
	s.indexes.Range(func(field string, _ Direction) bool {
		if before != nil && before.Exists(field) {
			if err := tx.Delete(ctx, keys.Index(s.collection, field, before.Get(field), id)); err != nil {
				indexErr = err
				return false
			}
		}
		if after.Exists(field) {
			if err := tx.Set(ctx, keys.Index(s.collection, field, after.Get(field), id), []byte(id)); err != nil {
				indexErr = err
				return false
			}
		}
		return true
	})
	return indexErr
}

// removeDocument deletes the document and its index entries within the caller's
// transaction
func (s *KVStore) removeDocument(ctx context.Context, tx kv.Tx, before *Document) error {
	id := before.ID()
	if err := tx.Delete(ctx, keys.Document(s.collection, id)); err != nil {
		return err
	}
	var indexErr error
	s.indexes.Range(func(field string, _ Direction) bool {
		if before.Exists(field) {
			if err := tx.Delete(ctx, keys.Index(s.collection, field, before.Get(field), id)); err != nil {
				indexErr = err
				return false
			}
		}
		return true
	})
	return indexErr
}

// backfillIndex writes index entries for every existing document carrying the field
func (s *KVStore) backfillIndex(ctx context.Context, field string) error {
	var documents Documents
	if err := s.db.Tx(ctx, kv.TxOpts{IsReadOnly: true}, func(ctx context.Context, tx kv.Tx) error {
		all, err := s.scanAll(ctx, tx, NewCriteria())
		if err != nil {
			return err
		}
		documents = all
		return nil
	}); err != nil {
		return err
	}
	if len(documents) == 0 {
		return nil
	}
	return s.db.Tx(ctx, kv.TxOpts{IsBatch: true}, func(ctx context.Context, tx kv.Tx) error {
		for _, document := range documents {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !document.Exists(field) {
				continue
			}
			id := document.ID()
			if err := tx.Set(ctx, keys.Index(s.collection, field, document.Get(field), id), []byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// indexConfig is the persisted shape of a collection's ensured indexes
type indexConfig struct {
	Collection string               `json:"collection"`
	Indexes    map[string]Direction `json:"indexes"`
}

func (s *KVStore) persistIndexes(ctx context.Context) error {
	cfg := indexConfig{
		Collection: s.collection,
		Indexes:    s.indexes.AsMap(),
	}
	bits, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return s.db.Tx(ctx, kv.TxOpts{}, func(ctx context.Context, tx kv.Tx) error {
		return tx.Set(ctx, keys.Config(s.collection), bits)
	})
}

func (s *KVStore) loadIndexes(ctx context.Context) error {
	var cfg indexConfig
	if err := s.db.Tx(ctx, kv.TxOpts{IsReadOnly: true}, func(ctx context.Context, tx kv.Tx) error {
		bits, err := tx.Get(ctx, keys.Config(s.collection))
		if err != nil {
			return err
		}
		if len(bits) == 0 {
			return nil
		}
		return yaml.Unmarshal(bits, &cfg)
	}); err != nil {
		return storeError(err, "%s: failed to load persisted indexes", s.collection)
	}
	for field, direction := range cfg.Indexes {
		s.indexes.Set(field, direction)
	}
	return nil
}

func (s *KVStore) publish(ctx context.Context, action Action, id string, document *Document) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(ctx, machine.Message{
		Channel: s.collection,
		Body: Event{
			Collection: s.collection,
			Action:     action,
			DocumentID: id,
			Document:   document,
			Timestamp:  time.Now(),
		},
	})
}
