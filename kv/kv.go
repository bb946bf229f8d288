package kv

import (
	"context"
)

// DB is a key value database implementation
type DB interface {
	// Tx executes the given function against a new transaction. If the function
	// returns an error all changes are rolled back, otherwise they are committed.
	Tx(ctx context.Context, opts TxOpts, fn TxFunc) error
	// NewTx creates a new transaction
	NewTx(opts TxOpts) (Tx, error)
	// DropPrefix drops all keys with the given prefix(es) from the database
	DropPrefix(ctx context.Context, prefix ...[]byte) error
	// Close closes the key value database
	Close(ctx context.Context) error
}

// TxFunc is a function executed against a transaction
type TxFunc func(ctx context.Context, tx Tx) error

// TxOpts are options used when opening a transaction
type TxOpts struct {
	// IsReadOnly indicates that the transaction will not write
	IsReadOnly bool `json:"isReadOnly"`
	// IsBatch indicates that the transaction writes a large volume of keys and
	// may be executed as a batch that does not support reads
	IsBatch bool `json:"isBatch"`
}

// Tx is a transaction interface
type Tx interface {
	// Get gets the value belonging to the key. A missing key returns nil bytes
	// and no error.
	Get(ctx context.Context, key []byte) ([]byte, error)
	// Set sets the key value pair
	Set(ctx context.Context, key, value []byte) error
	// Delete deletes the key
	Delete(ctx context.Context, key []byte) error
	// NewIterator opens an iterator against the transaction's snapshot
	NewIterator(opts IterOpts) (Iterator, error)
	// Commit commits the changes made within the transaction
	Commit(ctx context.Context) error
	// Rollback discards the changes made within the transaction
	Rollback(ctx context.Context)
	// Close releases the transaction. Uncommitted changes are discarded.
	Close(ctx context.Context)
}

// IterOpts configure an iterator
type IterOpts struct {
	// Prefix restricts iteration to keys with the given prefix
	Prefix []byte `json:"prefix"`
	// Seek positions the iterator at the first key >= Seek (<= when Reverse)
	Seek []byte `json:"seek"`
	// UpperBound restricts iteration to keys not greater than the bound
	UpperBound []byte `json:"upperBound"`
	// Reverse iterates in descending key order
	Reverse bool `json:"reverse"`
}

// Iterator iterates over keys in the database
type Iterator interface {
	// Seek moves the iterator to the given key
	Seek(key []byte)
	// Valid reports whether the iterator is positioned on a key within its bounds
	Valid() bool
	// Key returns the key the iterator is positioned on
	Key() []byte
	// Value returns the value belonging to the current key
	Value() ([]byte, error)
	// Next advances the iterator
	Next() error
	// Close releases the iterator
	Close()
}
