package docstore

import (
	"sort"

	"github.com/autom8ter/docstore/errors"
)

// memCursor is a DocumentCursor over an in memory snapshot of matching documents.
// Sorting happens on the whole documents before skip, limit and projection are
// applied, so sort fields need not survive the projection.
type memCursor struct {
	documents  Documents
	projection []string
	sorts      []SortSpec
	skip       int
	limit      int
	prepared   bool
	pos        int
	current    *Document
	err        error
	closed     bool
}

func newMemCursor(documents Documents, projection []string) *memCursor {
	return &memCursor{
		documents:  documents,
		projection: projection,
	}
}

// Skip discards the first n documents of the result set
func (c *memCursor) Skip(n int) DocumentCursor {
	c.skip = n
	return c
}

// Limit caps the number of documents the cursor yields
func (c *memCursor) Limit(n int) DocumentCursor {
	c.limit = n
	return c
}

// Sort orders the result set; the first spec is the primary sort key and later
// specs break ties
func (c *memCursor) Sort(specs ...SortSpec) DocumentCursor {
	c.sorts = append(c.sorts, specs...)
	return c
}

func (c *memCursor) prepare() {
	if c.prepared {
		return
	}
	c.prepared = true
	if len(c.sorts) > 0 {
		sortDocuments(c.documents, c.sorts)
	}
	if c.skip > 0 {
		if c.skip >= len(c.documents) {
			c.documents = nil
		} else {
			c.documents = c.documents[c.skip:]
		}
	}
	if c.limit > 0 && len(c.documents) > c.limit {
		c.documents = c.documents[:c.limit]
	}
}

// Next advances the cursor and reports whether a document is available
func (c *memCursor) Next() bool {
	if c.closed || c.err != nil {
		return false
	}
	c.prepare()
	if c.pos >= len(c.documents) {
		return false
	}
	document := c.documents[c.pos]
	c.pos++
	projected, err := c.project(document)
	if err != nil {
		c.err = err
		return false
	}
	c.current = projected
	return true
}

func (c *memCursor) project(document *Document) (*Document, error) {
	if len(c.projection) == 0 {
		return document, nil
	}
	return document.Select(c.projection)
}

// Document returns the document the cursor is positioned on
func (c *memCursor) Document() *Document {
	return c.current
}

// Err returns the first error encountered while iterating
func (c *memCursor) Err() error {
	return c.err
}

// Size returns the number of documents in the result set after skip and limit
func (c *memCursor) Size() (int, error) {
	if c.closed {
		return 0, errors.New(errors.Store, "cursor is closed")
	}
	c.prepare()
	return len(c.documents), nil
}

// Close releases the cursor. Close is safe to call multiple times.
func (c *memCursor) Close() error {
	c.closed = true
	c.documents = nil
	c.current = nil
	return nil
}

// sortDocuments orders documents by the specs: the first spec is the primary key,
// later specs break ties. The sort is stable, so documents equal under every spec
// keep their id order.
func sortDocuments(documents Documents, specs []SortSpec) {
	sort.SliceStable(documents, func(i, j int) bool {
		for _, spec := range specs {
			cmp := compareValues(documents[i].Get(spec.Field), documents[j].Get(spec.Field))
			if cmp == 0 {
				continue
			}
			if spec.Direction == DirectionDesc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}
