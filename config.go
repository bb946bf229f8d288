package docstore

import (
	"github.com/autom8ter/docstore/util"
)

// Config configures a session
type Config struct {
	// Backend is the name of the registered key value backend documents are stored
	// in ("badger", "tikv", or any backend registered by a side effect import)
	Backend string `json:"backend" validate:"required"`
	// Params are backend specific connection parameters, passed through to the
	// backend's opener
	Params map[string]any `json:"params"`
	// LogLevel sets the default logger's level; empty means info. Ignored when the
	// session is opened with WithLogger.
	LogLevel string `json:"logLevel"`
}

// Validate validates the config and returns a validation error if one exists
func (c Config) Validate() error {
	return util.ValidateStruct(&c)
}

// Option configures a session beyond its Config
type Option func(s *Session)

// WithLogger overrides the session's logger
func WithLogger(logger Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithCodec overrides the codec used to encode and decode objects. Use this to
// share one codec's class registrations across sessions.
func WithCodec(codec ObjectCodec) Option {
	return func(s *Session) {
		s.codec = codec
	}
}

// WithIDCache backs the session's observed id set with the given cache. Use a
// redis backed cache to share observed ids across processes.
func WithIDCache(cache Cache[bool]) Option {
	return func(s *Session) {
		s.ids = NewSessionIDs(cache)
	}
}
