package keys_test

import (
	"bytes"
	"testing"

	"github.com/autom8ter/docstore/internal/keys"
	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	t.Run("document key carries document prefix", func(t *testing.T) {
		key := keys.Document("users", "abc")
		assert.True(t, bytes.HasPrefix(key, keys.DocumentPrefix("users")))
	})
	t.Run("document id roundtrip", func(t *testing.T) {
		key := keys.Document("users", "abc")
		assert.Equal(t, "abc", keys.DocumentID(key))
	})
	t.Run("collection prefix covers documents index and config", func(t *testing.T) {
		assert.True(t, bytes.HasPrefix(keys.Document("users", "abc"), keys.CollectionPrefix("users")))
		assert.True(t, bytes.HasPrefix(keys.Index("users", "age", 1, "abc"), keys.CollectionPrefix("users")))
		assert.True(t, bytes.HasPrefix(keys.Config("users"), keys.CollectionPrefix("users")))
	})
	t.Run("collection prefix does not cover other collections", func(t *testing.T) {
		assert.False(t, bytes.HasPrefix(keys.Document("users2", "abc"), keys.CollectionPrefix("users")))
	})
	t.Run("index entries sort by encoded value", func(t *testing.T) {
		low := keys.Index("users", "age", 1, "abc")
		high := keys.Index("users", "age", 2, "abc")
		assert.True(t, bytes.Compare(low, high) < 0)
	})
	t.Run("index id is the final segment", func(t *testing.T) {
		key := keys.Index("users", "age", 256, "abc")
		assert.True(t, bytes.HasPrefix(key, keys.IndexValuePrefix("users", "age", 256)))
		assert.Equal(t, "abc", keys.DocumentID(key))
	})
}
