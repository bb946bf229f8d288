package docstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/autom8ter/docstore/errors"
	"github.com/autom8ter/docstore/internal/safe"
	"github.com/segmentio/ksuid"
	"github.com/tidwall/gjson"
)

// Identifiable is implemented by objects that carry their own document identifier
type Identifiable interface {
	// DocumentID returns the identifier stored in the document's _id field
	DocumentID() string
}

// ObjectCodec converts between application objects and json documents
type ObjectCodec interface {
	// ToDocument encodes the object into a document, populating the reserved fields
	ToDocument(obj any) (*Document, error)
	// FromDocument decodes the document into an object of the document's class
	FromDocument(doc *Document) (any, error)
	// ToValue normalizes a single value for embedding into a compiled query
	ToValue(value any) (any, error)
}

// Codec is the default ObjectCodec. Objects encode through json; documents decode
// into instances produced by registered class factories, or into a map when the
// document's class is unregistered. Identifiers are assigned from Identifiable
// objects, falling back to generated ksuids.
type Codec struct {
	factories *safe.Map[func() any]
	classes   *safe.Map[string]
}

// NewCodec returns an empty default codec
func NewCodec() *Codec {
	return &Codec{
		factories: safe.NewMap[func() any](nil),
		classes:   safe.NewMap[string](nil),
	}
}

// Register binds a class discriminator to a factory producing empty instances of the
// class. Objects of the factory's type encode with the class set on the document.
func (c *Codec) Register(class string, factory func() any) *Codec {
	c.factories.Set(class, factory)
	c.classes.Set(typeKey(factory()), class)
	return c
}

// ToDocument encodes the object into a document. Documents pass through untouched.
func (c *Codec) ToDocument(obj any) (*Document, error) {
	if doc, ok := obj.(*Document); ok {
		return doc, nil
	}
	doc, err := NewDocumentFrom(obj)
	if err != nil {
		return nil, err
	}
	if identifiable, ok := obj.(Identifiable); ok && identifiable.DocumentID() != "" {
		if err := doc.SetID(identifiable.DocumentID()); err != nil {
			return nil, err
		}
	}
	if doc.ID() == "" {
		if err := doc.SetID(ksuid.New().String()); err != nil {
			return nil, err
		}
	}
	if doc.Class() == "" {
		if class := c.classes.Get(typeKey(obj)); class != "" {
			if err := doc.SetClass(class); err != nil {
				return nil, err
			}
		}
	}
	return doc, nil
}

// FromDocument decodes the document into an instance of its registered class. When
// the class is unregistered the document's map value is returned.
func (c *Codec) FromDocument(doc *Document) (any, error) {
	if doc == nil {
		return nil, errors.New(errors.Validation, "nil document")
	}
	factory := c.factories.Get(doc.Class())
	if factory == nil {
		return doc.Value(), nil
	}
	obj := factory()
	if err := doc.Scan(obj); err != nil {
		return nil, errors.Wrap(err, errors.Validation, "failed to decode document into class '%s'", doc.Class())
	}
	return obj, nil
}

// ToValue normalizes the value for embedding into a compiled query. Values take the
// shape they would have after a json round trip so comparisons against stored
// documents are exact; times render as RFC3339.
func (c *Codec) ToValue(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if t, ok := value.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano), nil
	}
	bits, err := json.Marshal(value)
	if err != nil {
		return nil, errors.New(errors.Validation, "failed to encode filter value: %#v", value)
	}
	return gjson.ParseBytes(bits).Value(), nil
}

func typeKey(obj any) string {
	return fmt.Sprintf("%T", obj)
}
