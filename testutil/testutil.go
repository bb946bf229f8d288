// Package testutil provides fixtures and harnesses shared by tests.
package testutil

import (
	"context"
	"time"

	"github.com/autom8ter/docstore"
	_ "github.com/autom8ter/docstore/kv/badger"
	"github.com/brianvoe/gofakeit/v6"
)

const (
	// UserClass is the class discriminator user fixtures are registered under
	UserClass = "user"
	// TaskClass is the class discriminator task fixtures are registered under
	TaskClass = "task"
)

// Contact is a user fixture's contact details
type Contact struct {
	Email string `json:"email"`
}

// User is a typed user fixture
type User struct {
	ID        string  `json:"_id,omitempty"`
	Class     string  `json:"_class,omitempty"`
	Name      string  `json:"name"`
	Contact   Contact `json:"contact"`
	AccountID int     `json:"account_id"`
	Language  string  `json:"language"`
	Gender    string  `json:"gender"`
	Age       int     `json:"age"`
}

// DocumentID returns the user's document identifier
func (u *User) DocumentID() string {
	return u.ID
}

// Task is a typed task fixture
type Task struct {
	ID      string `json:"_id,omitempty"`
	Class   string `json:"_class,omitempty"`
	User    string `json:"user"`
	Content string `json:"content"`
}

// DocumentID returns the task's document identifier
func (t *Task) DocumentID() string {
	return t.ID
}

// NewCodec returns a codec with the fixture classes registered
func NewCodec() *docstore.Codec {
	return docstore.NewCodec().
		Register(UserClass, func() any { return &User{} }).
		Register(TaskClass, func() any { return &Task{} })
}

// NewUser returns a random user fixture
func NewUser() *User {
	return &User{
		ID:   gofakeit.UUID(),
		Name: gofakeit.Name(),
		Contact: Contact{
			Email: gofakeit.Email(),
		},
		AccountID: gofakeit.IntRange(0, 100),
		Language:  gofakeit.Language(),
		Gender:    gofakeit.Gender(),
		Age:       gofakeit.IntRange(0, 100),
	}
}

// NewUserDoc returns a random user document
func NewUserDoc() *docstore.Document {
	doc, err := docstore.NewDocumentFrom(map[string]interface{}{
		"_id":    gofakeit.UUID(),
		"_class": UserClass,
		"name":   gofakeit.Name(),
		"contact": map[string]interface{}{
			"email": gofakeit.Email(),
		},
		"account_id":      gofakeit.IntRange(0, 100),
		"language":        gofakeit.Language(),
		"birthday_month":  gofakeit.Month(),
		"favorite_number": gofakeit.Second(),
		"gender":          gofakeit.Gender(),
		"age":             gofakeit.IntRange(0, 100),
		"timestamp":       gofakeit.DateRange(time.Now().Truncate(7200*time.Hour), time.Now()),
	})
	if err != nil {
		panic(err)
	}
	return doc
}

// NewTaskDoc returns a random task document belonging to the given user
func NewTaskDoc(usrID string) *docstore.Document {
	doc, err := docstore.NewDocumentFrom(map[string]interface{}{
		"_id":     gofakeit.UUID(),
		"_class":  TaskClass,
		"user":    usrID,
		"content": gofakeit.LoremIpsumSentence(5),
	})
	if err != nil {
		panic(err)
	}
	return doc
}

// TestSession opens a session against an in memory backend, hands it to fn and
// closes it when fn returns. The fixture classes are registered on the session's
// codec.
func TestSession(fn func(ctx context.Context, session *docstore.Session)) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	session, err := docstore.Open(ctx, docstore.Config{
		Backend:  "badger",
		Params:   map[string]any{"storage_path": ""},
		LogLevel: "warn",
	}, docstore.WithCodec(NewCodec()))
	if err != nil {
		return err
	}
	defer session.Close(ctx)
	fn(ctx, session)
	return nil
}

// SeedUsers inserts count random users and returns their identifiers in insertion
// order
func SeedUsers(ctx context.Context, collection *docstore.Collection, count int) ([]string, error) {
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id, err := collection.Insert(ctx, NewUser())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
