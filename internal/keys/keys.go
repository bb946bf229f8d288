// Package keys builds the kv key paths documents, index entries and collection
// metadata are stored under. Path segments are joined with a NUL byte so that
// segment boundaries never collide with segment content and keys sort bytewise
// by segment.
package keys

import (
	"bytes"

	"github.com/autom8ter/docstore/util"
)

var separator = []byte("\x00")

const (
	documentSegment = "documents"
	indexSegment    = "index"
	configSegment   = "config"
)

func join(segments ...[]byte) []byte {
	return bytes.Join(segments, separator)
}

// DocumentPrefix returns the prefix under which every document of the
// collection is stored
func DocumentPrefix(collection string) []byte {
	return join([]byte(collection), []byte(documentSegment), nil)
}

// Document returns the key the document with the given id is stored under
func Document(collection, id string) []byte {
	return join([]byte(collection), []byte(documentSegment), []byte(id))
}

// DocumentID extracts the document id from a document key
func DocumentID(key []byte) string {
	split := bytes.Split(key, separator)
	return string(split[len(split)-1])
}

// IndexPrefix returns the prefix under which every entry of the field's index
// is stored
func IndexPrefix(collection, field string) []byte {
	return join([]byte(collection), []byte(indexSegment), []byte(field), nil)
}

// IndexValuePrefix returns the prefix under which index entries for the given
// field value are stored. Values are encoded so entries sort bytewise in
// ascending value order.
func IndexValuePrefix(collection, field string, value any) []byte {
	return join([]byte(collection), []byte(indexSegment), []byte(field), util.EncodeIndexValue(value), nil)
}

// Index returns the index entry key for a field value of the document with the
// given id. Only ids are stored in index entries; documents are looked up from
// the primary key space.
func Index(collection, field string, value any, id string) []byte {
	return join([]byte(collection), []byte(indexSegment), []byte(field), util.EncodeIndexValue(value), []byte(id))
}

// Config returns the key the collection's persisted configuration is stored
// under
func Config(collection string) []byte {
	return join([]byte(collection), []byte(configSegment))
}

// CollectionPrefix returns the prefix covering every key belonging to the
// collection: documents, index entries and configuration
func CollectionPrefix(collection string) []byte {
	return join([]byte(collection), nil)
}
