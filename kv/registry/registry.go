package registry

import (
	"sync"

	"github.com/autom8ter/docstore/errors"
	"github.com/autom8ter/docstore/kv"
)

// Opener opens a key value database from backend specific parameters
type Opener func(params map[string]interface{}) (kv.DB, error)

var (
	mu                sync.RWMutex
	registeredOpeners = map[string]Opener{}
)

// Register registers a database opener by name. Backends register themselves
// from their package init.
func Register(name string, opener Opener) {
	mu.Lock()
	defer mu.Unlock()
	registeredOpeners[name] = opener
}

// Open opens a registered key value database by name
func Open(name string, params map[string]interface{}) (kv.DB, error) {
	mu.RLock()
	opener, ok := registeredOpeners[name]
	mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.NotFound, "%s is not a registered backend", name)
	}
	return opener(params)
}
