package tikv

import (
	"bytes"

	"github.com/autom8ter/docstore/kv"
)

// clientIterator is the subset of the tikv client iterator consumed here
type clientIterator interface {
	Valid() bool
	Key() []byte
	Value() []byte
	Next() error
	Close()
}

type tikvIterator struct {
	opts kv.IterOpts
	iter clientIterator
}

// Seek is unsupported by the underlying client iterator; iterators are opened
// positioned at IterOpts.Seek instead.
func (it *tikvIterator) Seek(key []byte) {}

func (it *tikvIterator) Valid() bool {
	if !it.iter.Valid() {
		return false
	}
	key := it.iter.Key()
	if it.opts.Prefix != nil && !bytes.HasPrefix(key, it.opts.Prefix) {
		return false
	}
	if it.opts.UpperBound != nil && bytes.Compare(key, it.opts.UpperBound) > 0 {
		return false
	}
	return true
}

func (it *tikvIterator) Key() []byte {
	return it.iter.Key()
}

func (it *tikvIterator) Value() ([]byte, error) {
	return it.iter.Value(), nil
}

func (it *tikvIterator) Next() error {
	return it.iter.Next()
}

func (it *tikvIterator) Close() {
	it.iter.Close()
}
