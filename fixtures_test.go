package docstore

import (
	"context"
	"testing"
	"time"

	_ "github.com/autom8ter/docstore/kv/badger"
	"github.com/autom8ter/docstore/kv/registry"
	"github.com/brianvoe/gofakeit/v6"
)

func newUserDoc() *Document {
	doc, err := NewDocumentFrom(map[string]interface{}{
		"_id":    gofakeit.UUID(),
		"_class": "user",
		"name":   gofakeit.Name(),
		"contact": map[string]interface{}{
			"email": gofakeit.Email(),
		},
		"account_id": gofakeit.IntRange(0, 100),
		"language":   gofakeit.Language(),
		"gender":     gofakeit.Gender(),
		"age":        gofakeit.IntRange(0, 100),
		"timestamp":  gofakeit.DateRange(time.Now().Truncate(7200*time.Hour), time.Now()),
	})
	if err != nil {
		panic(err)
	}
	return doc
}

// newTestStore returns a store for the collection over a fresh in memory backend
func newTestStore(t *testing.T, collection string) (*KVStore, func()) {
	t.Helper()
	db, err := registry.Open("badger", map[string]interface{}{
		"storage_path": "",
	})
	if err != nil {
		t.Fatal(err)
	}
	store, err := NewKVStore(context.Background(), db, nil, collection, nil)
	if err != nil {
		t.Fatal(err)
	}
	return store, func() {
		_ = db.Close(context.Background())
	}
}
