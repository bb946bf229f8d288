// Package docstore is an embeddable document store: json documents organized in
// collections over a pluggable transactional key value backend, queried through a
// compiled filter algebra with projection, sorting and pagination.
package docstore

import (
	"context"

	"github.com/autom8ter/docstore/internal/safe"
	"github.com/autom8ter/docstore/kv"
	"github.com/autom8ter/docstore/kv/registry"
	"github.com/autom8ter/machine/v4"
	"go.uber.org/multierr"
)

// Session is a handle over one key value backend holding any number of
// collections. All collections opened through a session share its codec, logger
// and observed id cache; changes committed through any of them can be watched
// through the session. Sessions are safe for concurrent use.
type Session struct {
	config      Config
	db          kv.DB
	broker      machine.Machine
	codec       ObjectCodec
	logger      Logger
	ids         *SessionIDs
	collections *safe.Map[*Collection]
}

// Open opens a session against a registered key value backend. Backends register
// themselves through side effect imports:
//
//	import _ "github.com/autom8ter/docstore/kv/badger"
func Open(ctx context.Context, cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		config:      cfg,
		broker:      machine.New(),
		collections: safe.NewMap[*Collection](nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		level := cfg.LogLevel
		if level == "" {
			level = "info"
		}
		logger, err := NewLogger(level, map[string]any{"backend": cfg.Backend})
		if err != nil {
			return nil, err
		}
		s.logger = logger
	}
	if s.codec == nil {
		s.codec = NewCodec()
	}
	if s.ids == nil {
		s.ids = NewSessionIDs(nil)
	}
	db, err := registry.Open(cfg.Backend, cfg.Params)
	if err != nil {
		return nil, storeError(err, "failed to open '%s' backend", cfg.Backend)
	}
	s.db = db
	s.logger.Info(ctx, "opened session", map[string]any{"backend": cfg.Backend})
	return s, nil
}

// Collection returns the session scoped handle for the named collection, creating
// it on first use
func (s *Session) Collection(ctx context.Context, name string) (*Collection, error) {
	if existing := s.collections.Get(name); existing != nil {
		return existing, nil
	}
	store, err := NewKVStore(ctx, s.db, s.broker, name, s.logger)
	if err != nil {
		return nil, err
	}
	collection := NewCollection(name, store, s.codec, s.ids, s.logger)
	s.collections.Set(name, collection)
	return collection, nil
}

// Codec returns the session's codec. Register classes on it before decoding
// queries into typed objects.
func (s *Session) Codec() ObjectCodec {
	return s.codec
}

// ObservedIDs returns the session's cache of identifiers observed by queries
// issued through any of its collections
func (s *Session) ObservedIDs() *SessionIDs {
	return s.ids
}

// Watch subscribes to committed changes in the named collection, blocking until
// the context cancels, the handler returns false, or the handler errors
func (s *Session) Watch(ctx context.Context, collection string, fn EventHandler) error {
	return s.broker.Subscribe(ctx, collection, func(ctx context.Context, msg machine.Message) (bool, error) {
		switch event := msg.Body.(type) {
		case Event:
			return fn(ctx, event)
		case *Event:
			return fn(ctx, *event)
		}
		return true, nil
	})
}

// Close waits for background work to settle and closes the backend
func (s *Session) Close(ctx context.Context) error {
	err := multierr.Combine(s.broker.Wait(), s.db.Close(ctx))
	if err != nil {
		s.logger.Error(ctx, "error closing session", err, map[string]any{"backend": s.config.Backend})
	}
	return err
}
