package docstore_test

import (
	"context"
	"testing"

	"github.com/autom8ter/docstore"
	"github.com/autom8ter/docstore/errors"
	"github.com/autom8ter/docstore/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectionCRUD(t *testing.T) {
	assert.Nil(t, testutil.TestSession(func(ctx context.Context, session *docstore.Session) {
		users, err := session.Collection(ctx, "user")
		assert.Nil(t, err)
		t.Run("insert and get a typed object", func(t *testing.T) {
			usr := testutil.NewUser()
			id, err := users.Insert(ctx, usr)
			assert.Nil(t, err)
			assert.Equal(t, usr.ID, id)
			got, err := users.Get(ctx, id)
			assert.Nil(t, err)
			decoded, ok := got.(*testutil.User)
			assert.True(t, ok)
			assert.Equal(t, usr.Name, decoded.Name)
			assert.Equal(t, usr.Contact.Email, decoded.Contact.Email)
			assert.Equal(t, testutil.UserClass, decoded.Class)
		})
		t.Run("insert assigns an identifier when the object has none", func(t *testing.T) {
			usr := testutil.NewUser()
			usr.ID = ""
			id, err := users.Insert(ctx, usr)
			assert.Nil(t, err)
			assert.NotEmpty(t, id)
		})
		t.Run("insert a raw document", func(t *testing.T) {
			doc := testutil.NewUserDoc()
			id, err := users.Insert(ctx, doc)
			assert.Nil(t, err)
			assert.Equal(t, doc.ID(), id)
		})
		t.Run("insert rejects duplicate identifiers", func(t *testing.T) {
			usr := testutil.NewUser()
			_, err := users.Insert(ctx, usr)
			assert.Nil(t, err)
			_, err = users.Insert(ctx, usr)
			assert.NotNil(t, err)
			assert.Equal(t, errors.Duplicate, errors.Extract(err).Code)
		})
		t.Run("exists", func(t *testing.T) {
			usr := testutil.NewUser()
			id, err := users.Insert(ctx, usr)
			assert.Nil(t, err)
			exists, err := users.Exists(ctx, id)
			assert.Nil(t, err)
			assert.True(t, exists)
			exists, err = users.Exists(ctx, "missing")
			assert.Nil(t, err)
			assert.False(t, exists)
		})
		t.Run("get missing", func(t *testing.T) {
			_, err := users.Get(ctx, "missing")
			assert.NotNil(t, err)
			assert.Equal(t, errors.NotFound, errors.Extract(err).Code)
		})
		t.Run("replace", func(t *testing.T) {
			usr := testutil.NewUser()
			_, err := users.Insert(ctx, usr)
			assert.Nil(t, err)
			usr.Name = "replaced"
			assert.Nil(t, users.Replace(ctx, usr))
			got, err := users.Get(ctx, usr.ID)
			assert.Nil(t, err)
			assert.Equal(t, "replaced", got.(*testutil.User).Name)
		})
		t.Run("replace a missing document", func(t *testing.T) {
			err := users.Replace(ctx, testutil.NewUser())
			assert.NotNil(t, err)
			assert.Equal(t, errors.NotFound, errors.Extract(err).Code)
		})
		t.Run("replace requires an identifier", func(t *testing.T) {
			usr := testutil.NewUser()
			usr.ID = ""
			err := users.Replace(ctx, usr)
			assert.NotNil(t, err)
			assert.Equal(t, errors.Validation, errors.Extract(err).Code)
		})
		t.Run("delete", func(t *testing.T) {
			usr := testutil.NewUser()
			id, err := users.Insert(ctx, usr)
			assert.Nil(t, err)
			assert.Nil(t, users.Delete(ctx, usr))
			exists, err := users.Exists(ctx, id)
			assert.Nil(t, err)
			assert.False(t, exists)
			err = users.Delete(ctx, usr)
			assert.NotNil(t, err)
			assert.Equal(t, errors.NotFound, errors.Extract(err).Code)
		})
		t.Run("delete requires an identifier", func(t *testing.T) {
			usr := testutil.NewUser()
			usr.ID = ""
			err := users.Delete(ctx, usr)
			assert.NotNil(t, err)
			assert.Equal(t, errors.Validation, errors.Extract(err).Code)
		})
	}))
}

func TestCollectionQueries(t *testing.T) {
	assert.Nil(t, testutil.TestSession(func(ctx context.Context, session *docstore.Session) {
		users, err := session.Collection(ctx, "user")
		assert.Nil(t, err)
		languages := []string{"english", "spanish"}
		for i := 0; i < 10; i++ {
			usr := testutil.NewUser()
			usr.Age = i * 10
			usr.Language = languages[i%2]
			_, err := users.Insert(ctx, usr)
			assert.Nil(t, err)
		}
		t.Run("filtered query", func(t *testing.T) {
			iterator, err := users.Query(ctx, docstore.NewQuery().
				Where(docstore.FieldFilter{Field: docstore.F("age", docstore.KindInt), Op: docstore.OpGte, Value: 50}))
			assert.Nil(t, err)
			defer iterator.Close()
			var seen int
			for iterator.Next() {
				usr := iterator.Value().(*testutil.User)
				assert.GreaterOrEqual(t, usr.Age, 50)
				seen++
			}
			assert.Nil(t, iterator.Err())
			assert.Equal(t, 5, seen)
		})
		t.Run("compound filters", func(t *testing.T) {
			count, err := users.Count(ctx, docstore.NewQuery().
				Where(docstore.FieldFilter{Field: docstore.F("age", docstore.KindInt), Op: docstore.OpGte, Value: 50}).
				Where(docstore.FieldFilter{Field: docstore.F("language", docstore.KindString), Op: docstore.OpEq, Value: "english"}))
			assert.Nil(t, err)
			assert.Equal(t, 2, count)
		})
		t.Run("or groups", func(t *testing.T) {
			count, err := users.Count(ctx, docstore.NewQuery().
				Where(docstore.Or(
					docstore.FieldFilter{Field: docstore.F("age", docstore.KindInt), Op: docstore.OpEq, Value: 0},
					docstore.FieldFilter{Field: docstore.F("age", docstore.KindInt), Op: docstore.OpEq, Value: 90},
				)))
			assert.Nil(t, err)
			assert.Equal(t, 2, count)
		})
		t.Run("nested field filters", func(t *testing.T) {
			count, err := users.Count(ctx, docstore.NewQuery().
				Where(docstore.FieldFilter{
					Field: docstore.F("contact", docstore.KindAny),
					Op:    docstore.OpSubFilter,
					Value: docstore.FieldFilter{Field: docstore.F("email", docstore.KindString), Op: docstore.OpExists, Value: true},
				}))
			assert.Nil(t, err)
			assert.Equal(t, 10, count)
		})
		t.Run("sorted query", func(t *testing.T) {
			iterator, err := users.Query(ctx, docstore.NewQuery().OrderBy("age", docstore.DirectionDesc))
			assert.Nil(t, err)
			defer iterator.Close()
			var ages []int
			for iterator.Next() {
				ages = append(ages, iterator.Value().(*testutil.User).Age)
			}
			assert.Nil(t, iterator.Err())
			assert.Equal(t, 10, len(ages))
			for i := 1; i < len(ages); i++ {
				assert.GreaterOrEqual(t, ages[i-1], ages[i])
			}
		})
		t.Run("projected query decodes partial objects", func(t *testing.T) {
			iterator, err := users.Query(ctx, docstore.NewQuery().Select("name").Limit(1))
			assert.Nil(t, err)
			defer iterator.Close()
			assert.True(t, iterator.Next())
			usr, ok := iterator.Value().(*testutil.User)
			assert.True(t, ok)
			assert.NotEmpty(t, usr.Name)
			assert.NotEmpty(t, usr.ID)
			assert.Zero(t, usr.Age)
		})
		t.Run("query ids match query order", func(t *testing.T) {
			q := func() *docstore.Query {
				return docstore.NewQuery().OrderBy("age", docstore.DirectionAsc)
			}
			iterator, err := users.Query(ctx, q())
			assert.Nil(t, err)
			defer iterator.Close()
			var fromQuery []string
			for iterator.Next() {
				fromQuery = append(fromQuery, iterator.Value().(*testutil.User).ID)
			}
			assert.Nil(t, iterator.Err())
			fromIDs, err := users.QueryIDs(ctx, q())
			assert.Nil(t, err)
			assert.Equal(t, fromQuery, fromIDs)
		})
		t.Run("count with skip and limit", func(t *testing.T) {
			count, err := users.Count(ctx, docstore.NewQuery().Skip(8).Limit(5))
			assert.Nil(t, err)
			assert.Equal(t, 2, count)
		})
		t.Run("for each stops early", func(t *testing.T) {
			var seen int
			err := users.ForEach(ctx, docstore.NewQuery(), func(obj any) (bool, error) {
				seen++
				return seen < 3, nil
			})
			assert.Nil(t, err)
			assert.Equal(t, 3, seen)
		})
		t.Run("pagination", func(t *testing.T) {
			q := docstore.NewQuery().OrderBy("age", docstore.DirectionAsc)
			page, err := users.GetPage(ctx, q, 0, 3)
			assert.Nil(t, err)
			assert.Equal(t, 3, page.Count)
			assert.Equal(t, 1, page.NextPage)
			assert.Equal(t, 0, page.Results[0].(*testutil.User).Age)
			page, err = users.GetPage(ctx, q, 3, 3)
			assert.Nil(t, err)
			assert.Equal(t, 1, page.Count)
			assert.Equal(t, 90, page.Results[0].(*testutil.User).Age)
			page, err = users.GetPage(ctx, q, 4, 3)
			assert.Nil(t, err)
			assert.Equal(t, 0, page.Count)
			assert.Equal(t, 5, page.NextPage)
		})
		t.Run("invalid page bounds", func(t *testing.T) {
			_, err := users.GetPage(ctx, docstore.NewQuery(), -1, 3)
			assert.Equal(t, errors.Validation, errors.Extract(err).Code)
			_, err = users.GetPage(ctx, docstore.NewQuery(), 0, 0)
			assert.Equal(t, errors.Validation, errors.Extract(err).Code)
		})
		t.Run("queries record observed ids", func(t *testing.T) {
			ids, err := users.QueryIDs(ctx, docstore.NewQuery())
			assert.Nil(t, err)
			assert.NotEmpty(t, ids)
			for _, id := range ids {
				assert.True(t, users.ObservedIDs().Has(id))
			}
		})
		t.Run("size", func(t *testing.T) {
			size, err := users.Size(ctx)
			assert.Nil(t, err)
			assert.Equal(t, 10, size)
		})
	}))
}

func TestCollectionIndexes(t *testing.T) {
	assert.Nil(t, testutil.TestSession(func(ctx context.Context, session *docstore.Session) {
		users, err := session.Collection(ctx, "user")
		assert.Nil(t, err)
		languages := []string{"english", "spanish", "french"}
		for i := 0; i < 9; i++ {
			usr := testutil.NewUser()
			usr.Language = languages[i%3]
			_, err := users.Insert(ctx, usr)
			assert.Nil(t, err)
		}
		byLanguage := docstore.NewQuery().
			Where(docstore.FieldFilter{Field: docstore.F("language", docstore.KindString), Op: docstore.OpEq, Value: "english"})
		before, err := users.QueryIDs(ctx, byLanguage)
		assert.Nil(t, err)
		assert.Equal(t, 3, len(before))

		assert.Nil(t, users.CreateIndexes(ctx, docstore.F("language", docstore.KindString), docstore.F("age", docstore.KindInt)))
		t.Run("indexed queries return the same results", func(t *testing.T) {
			after, err := users.QueryIDs(ctx, byLanguage)
			assert.Nil(t, err)
			assert.Equal(t, before, after)
		})
		t.Run("re-ensuring is a no-op", func(t *testing.T) {
			assert.Nil(t, users.CreateIndexes(ctx, docstore.F("language", docstore.KindString)))
		})
		t.Run("empty field names are rejected", func(t *testing.T) {
			err := users.CreateIndexes(ctx, docstore.F("", docstore.KindAny))
			assert.NotNil(t, err)
			assert.Equal(t, errors.Validation, errors.Extract(err).Code)
		})
	}))
}

func TestCollectionSchemaEvolution(t *testing.T) {
	assert.Nil(t, testutil.TestSession(func(ctx context.Context, session *docstore.Session) {
		t.Run("remove field", func(t *testing.T) {
			tasks, err := session.Collection(ctx, "task")
			assert.Nil(t, err)
			for i := 0; i < 5; i++ {
				doc := testutil.NewTaskDoc("u-1")
				assert.Nil(t, doc.Set("legacy", true))
				_, err := tasks.Insert(ctx, doc)
				assert.Nil(t, err)
			}
			changed, err := tasks.RemoveField(ctx, "legacy")
			assert.Nil(t, err)
			assert.Equal(t, int64(5), changed)
			count, err := tasks.Count(ctx, docstore.NewQuery().
				Where(docstore.FieldFilter{Field: docstore.F("legacy", docstore.KindAny), Op: docstore.OpExists, Value: true}))
			assert.Nil(t, err)
			assert.Equal(t, 0, count)
			changed, err = tasks.RemoveField(ctx, "legacy")
			assert.Nil(t, err)
			assert.Equal(t, int64(0), changed)
		})
		t.Run("rename field", func(t *testing.T) {
			notes, err := session.Collection(ctx, "note")
			assert.Nil(t, err)
			for i := 0; i < 4; i++ {
				doc := testutil.NewTaskDoc("u-1")
				assert.Nil(t, doc.Rename("content", "body"))
				_, err := notes.Insert(ctx, doc)
				assert.Nil(t, err)
			}
			changed, err := notes.RenameField(ctx, "body", "content")
			assert.Nil(t, err)
			assert.Equal(t, int64(4), changed)
			count, err := notes.Count(ctx, docstore.NewQuery().
				Where(docstore.FieldFilter{Field: docstore.F("body", docstore.KindAny), Op: docstore.OpExists, Value: true}))
			assert.Nil(t, err)
			assert.Equal(t, 0, count)
			count, err = notes.Count(ctx, docstore.NewQuery().
				Where(docstore.FieldFilter{Field: docstore.F("content", docstore.KindAny), Op: docstore.OpExists, Value: true}))
			assert.Nil(t, err)
			assert.Equal(t, 4, count)
			changed, err = notes.RenameField(ctx, "body", "content")
			assert.Nil(t, err)
			assert.Equal(t, int64(0), changed)
		})
		t.Run("rename field validates its arguments", func(t *testing.T) {
			notes, err := session.Collection(ctx, "note")
			assert.Nil(t, err)
			_, err = notes.RenameField(ctx, "", "content")
			assert.Equal(t, errors.Validation, errors.Extract(err).Code)
			_, err = notes.RenameField(ctx, "content", "")
			assert.Equal(t, errors.Validation, errors.Extract(err).Code)
		})
		t.Run("replace revision class", func(t *testing.T) {
			records, err := session.Collection(ctx, "record")
			assert.Nil(t, err)
			for i := 0; i < 6; i++ {
				doc := testutil.NewUserDoc()
				assert.Nil(t, doc.Set(docstore.RevisionField, 1))
				_, err := records.Insert(ctx, doc)
				assert.Nil(t, err)
			}
			for i := 0; i < 2; i++ {
				doc := testutil.NewUserDoc()
				assert.Nil(t, doc.Set(docstore.RevisionField, 2))
				_, err := records.Insert(ctx, doc)
				assert.Nil(t, err)
			}
			changed, err := records.ReplaceRevisionClass(ctx, 1, "user_v2")
			assert.Nil(t, err)
			assert.Equal(t, int64(6), changed)
			count, err := records.Count(ctx, docstore.NewQuery().
				Where(docstore.FieldFilter{Field: docstore.F(docstore.ClassField, docstore.KindString), Op: docstore.OpEq, Value: "user_v2"}))
			assert.Nil(t, err)
			assert.Equal(t, 6, count)
			t.Run("a second run changes nothing", func(t *testing.T) {
				changed, err := records.ReplaceRevisionClass(ctx, 1, "user_v2")
				assert.Nil(t, err)
				assert.Equal(t, int64(0), changed)
			})
			t.Run("other revisions are untouched", func(t *testing.T) {
				count, err := records.Count(ctx, docstore.NewQuery().
					Where(docstore.FieldFilter{Field: docstore.F(docstore.ClassField, docstore.KindString), Op: docstore.OpEq, Value: testutil.UserClass}))
				assert.Nil(t, err)
				assert.Equal(t, 2, count)
			})
			t.Run("empty class names are rejected", func(t *testing.T) {
				_, err := records.ReplaceRevisionClass(ctx, 1, "")
				assert.Equal(t, errors.Validation, errors.Extract(err).Code)
			})
		})
		t.Run("drop all", func(t *testing.T) {
			scratch, err := session.Collection(ctx, "scratch")
			assert.Nil(t, err)
			_, err = testutil.SeedUsers(ctx, scratch, 3)
			assert.Nil(t, err)
			size, err := scratch.Size(ctx)
			assert.Nil(t, err)
			assert.Equal(t, 3, size)
			assert.Nil(t, scratch.DropAll(ctx))
			size, err = scratch.Size(ctx)
			assert.Nil(t, err)
			assert.Equal(t, 0, size)
		})
	}))
}

func Benchmark(b *testing.B) {
	b.Run("insert", func(b *testing.B) {
		assert.Nil(b, testutil.TestSession(func(ctx context.Context, session *docstore.Session) {
			users, err := session.Collection(ctx, "user")
			if err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := users.Insert(ctx, testutil.NewUser()); err != nil {
					b.Fatal(err)
				}
			}
		}))
	})
	b.Run("get", func(b *testing.B) {
		assert.Nil(b, testutil.TestSession(func(ctx context.Context, session *docstore.Session) {
			users, err := session.Collection(ctx, "user")
			if err != nil {
				b.Fatal(err)
			}
			id, err := users.Insert(ctx, testutil.NewUser())
			if err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := users.Get(ctx, id); err != nil {
					b.Fatal(err)
				}
			}
		}))
	})
	b.Run("query.1000", func(b *testing.B) {
		assert.Nil(b, testutil.TestSession(func(ctx context.Context, session *docstore.Session) {
			users, err := session.Collection(ctx, "user")
			if err != nil {
				b.Fatal(err)
			}
			needle := testutil.NewUser()
			needle.Contact.Email = "needle@example.com"
			if _, err := users.Insert(ctx, needle); err != nil {
				b.Fatal(err)
			}
			if _, err := testutil.SeedUsers(ctx, users, 999); err != nil {
				b.Fatal(err)
			}
			query := docstore.NewQuery().Where(docstore.FieldFilter{
				Field: docstore.F("contact.email", docstore.KindString),
				Op:    docstore.OpEq,
				Value: "needle@example.com",
			})
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ids, err := users.QueryIDs(ctx, query)
				if err != nil {
					b.Fatal(err)
				}
				if len(ids) != 1 {
					b.Fatal("expected a single match")
				}
			}
		}))
	})
}
