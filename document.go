package docstore

import (
	"encoding/json"
	"io"

	"github.com/autom8ter/docstore/errors"
	"github.com/autom8ter/docstore/util"
	flat2 "github.com/nqd/flat"
	"github.com/samber/lo"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Reserved document fields
const (
	// DocumentIDField holds the document identifier
	DocumentIDField = "_id"
	// ClassField holds the class discriminator of the object the document was encoded from
	ClassField = "_class"
	// RevisionField holds the revision marker used when reclassifying persisted documents
	RevisionField = "_revision"
)

// Document is a JSON object addressed by dot notation field paths. The
// object is kept in serialized form: reads resolve gjson paths against the
// raw bytes and writes splice new values in through sjson. Documents are
// not safe for concurrent writers.
type Document struct {
	result gjson.Result
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{result: gjson.Parse("{}")}
}

// NewDocumentFromBytes parses the given json into a document. The json must
// be a single object; arrays and scalars are rejected.
func NewDocumentFromBytes(json []byte) (*Document, error) {
	if !gjson.ValidBytes(json) {
		return nil, errors.New(errors.Validation, "invalid json: %s", string(json))
	}
	doc := &Document{result: gjson.ParseBytes(json)}
	if !doc.Valid() {
		return nil, errors.New(errors.Validation, "json documents must be objects: %s", string(json))
	}
	return doc, nil
}

// NewDocumentFrom marshals the value to json and parses it into a document.
func NewDocumentFrom(value any) (*Document, error) {
	bits, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, errors.Validation, "value of type %T is not json encodable", value)
	}
	return NewDocumentFromBytes(bits)
}

// Valid reports whether the underlying bytes are a well formed json object.
func (d *Document) Valid() bool {
	return gjson.ValidBytes(d.Bytes()) && d.result.IsObject()
}

// String returns the document as a json string
func (d *Document) String() string {
	return d.result.Raw
}

// Bytes returns the document as json bytes
func (d *Document) Bytes() []byte {
	return []byte(d.result.Raw)
}

// Value returns the document fields as a map.
func (d *Document) Value() map[string]any {
	values, _ := d.result.Value().(map[string]any)
	return values
}

// Clone returns a document backed by its own copy of the raw json.
func (d *Document) Clone() *Document {
	return &Document{result: gjson.Parse(d.result.Raw)}
}

// Get returns the value at the given path, or nil when the path is absent.
// Paths use dot notation and support the full gjson path syntax.
func (d *Document) Get(field string) any {
	return d.result.Get(field).Value()
}

// GetString returns the field as a string.
func (d *Document) GetString(field string) string {
	return d.result.Get(field).String()
}

// GetBool returns the field as a bool.
func (d *Document) GetBool(field string) bool {
	return cast.ToBool(d.Get(field))
}

// GetFloat returns the field as a float64.
func (d *Document) GetFloat(field string) float64 {
	return cast.ToFloat64(d.Get(field))
}

// Exists reports whether the field is present on the document. Fields set
// to an explicit null count as present.
func (d *Document) Exists(field string) bool {
	return d.result.Get(field).Exists()
}

// ID returns the value of the reserved _id field
func (d *Document) ID() string {
	return d.GetString(DocumentIDField)
}

// SetID sets the reserved _id field
func (d *Document) SetID(id string) error {
	return d.Set(DocumentIDField, id)
}

// Class returns the value of the reserved _class field
func (d *Document) Class() string {
	return d.GetString(ClassField)
}

// SetClass sets the reserved _class field
func (d *Document) SetClass(class string) error {
	return d.Set(ClassField, class)
}

// Revision returns the value of the reserved _revision field
func (d *Document) Revision() string {
	return d.GetString(RevisionField)
}

// SetRevision sets the reserved _revision field
func (d *Document) SetRevision(revision string) error {
	return d.Set(RevisionField, revision)
}

// Set writes a single field value. Paths use dot notation, so nested
// fields can be written without rebuilding the intermediate objects.
func (d *Document) Set(field string, value any) error {
	return d.set(field, value)
}

// SetAll writes each field value in the map.
func (d *Document) SetAll(values map[string]any) error {
	for field, value := range values {
		if err := d.set(field, value); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) set(field string, value any) error {
	var (
		raw string
		err error
	)
	switch value := value.(type) {
	case gjson.Result:
		raw, err = sjson.Set(d.result.Raw, field, value.Value())
	case []byte:
		raw, err = sjson.SetRaw(d.result.Raw, field, string(value))
	default:
		raw, err = sjson.Set(d.result.Raw, field, value)
	}
	if err != nil {
		return errors.Wrap(err, errors.Validation, "failed to set field %s", field)
	}
	// SetRaw splices caller bytes in verbatim, so the result needs a check.
	if !gjson.Valid(raw) {
		return errors.New(errors.Validation, "setting field %s produced an invalid document", field)
	}
	d.result = gjson.Parse(raw)
	return nil
}

// Merge overlays the fields of the given document onto this one. Nested
// objects are merged field by field rather than replaced wholesale.
func (d *Document) Merge(with *Document) error {
	if !with.Valid() {
		return errors.New(errors.Validation, "invalid document")
	}
	flattened, err := flat2.Flatten(with.Value(), nil)
	if err != nil {
		return err
	}
	return d.SetAll(flattened)
}

// Del removes the field from the document. Deleting an absent field is a
// no-op.
func (d *Document) Del(field string) error {
	raw, err := sjson.Delete(d.result.Raw, field)
	if err != nil {
		return errors.Wrap(err, errors.Validation, "failed to delete field %s", field)
	}
	d.result = gjson.Parse(raw)
	return nil
}

// Rename moves the value at the old field to the new field. Renaming an absent field is a no-op.
func (d *Document) Rename(oldField, newField string) error {
	if !d.Exists(oldField) {
		return nil
	}
	value := d.result.Get(oldField)
	if err := d.set(newField, value); err != nil {
		return err
	}
	return d.Del(oldField)
}

// Select returns a copy of the document containing only the given fields.
// Dot notation addresses nested fields. An empty field list returns the document unchanged.
func (d *Document) Select(fields []string) (*Document, error) {
	if len(fields) == 0 {
		return d, nil
	}
	patch := map[string]any{}
	for _, f := range lo.Uniq(fields) {
		if d.Exists(f) {
			patch[f] = d.Get(f)
		}
	}
	unflat, err := flat2.Unflatten(patch, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to select fields")
	}
	return NewDocumentFrom(unflat)
}

// FieldPaths returns every leaf field of the document in dot notation.
func (d *Document) FieldPaths() []string {
	var paths []string
	var walk func(result gjson.Result)
	walk = func(result gjson.Result) {
		result.ForEach(func(key, value gjson.Result) bool {
			if value.IsObject() {
				walk(value)
			} else {
				paths = append(paths, value.Path(d.result.Raw))
			}
			return true
		})
	}
	walk(d.result)
	return paths
}

// Scan decodes the document into the given value, which must be a pointer.
func (d *Document) Scan(value any) error {
	return util.Decode(d.Value(), value)
}

// Encode writes the raw json to the writer.
func (d *Document) Encode(w io.Writer) error {
	if _, err := w.Write(d.Bytes()); err != nil {
		return errors.Wrap(err, 0, "failed to encode document")
	}
	return nil
}

// MarshalJSON satisfies the json Marshaler interface
func (d *Document) MarshalJSON() ([]byte, error) {
	return d.Bytes(), nil
}

// UnmarshalJSON satisfies the json Unmarshaler interface
func (d *Document) UnmarshalJSON(bytes []byte) error {
	doc, err := NewDocumentFromBytes(bytes)
	if err != nil {
		return err
	}
	*d = *doc
	return nil
}

// Documents is a slice of documents with a few collection helpers.
type Documents []*Document

// Slice returns the documents between the start and end indexes.
func (documents Documents) Slice(start, end int) Documents {
	return lo.Slice(documents, start, end)
}

// Filter returns the documents the predicate returns true for.
func (documents Documents) Filter(predicate func(document *Document, i int) bool) Documents {
	return lo.Filter(documents, predicate)
}

// Map transforms each document with the mapper function.
func (documents Documents) Map(mapper func(document *Document, i int) *Document) Documents {
	return lo.Map(documents, mapper)
}

// ForEach applies the function to each document in order.
func (documents Documents) ForEach(fn func(document *Document, i int)) {
	lo.ForEach(documents, fn)
}
