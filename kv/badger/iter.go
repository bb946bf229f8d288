package badger

import (
	"bytes"

	"github.com/autom8ter/docstore/kv"
	"github.com/dgraph-io/badger/v3"
)

type badgerIterator struct {
	opts kv.IterOpts
	iter *badger.Iterator
}

func (b *badgerIterator) Seek(key []byte) {
	b.iter.Seek(key)
}

func (b *badgerIterator) Valid() bool {
	if b.opts.Prefix != nil {
		if !b.iter.ValidForPrefix(b.opts.Prefix) {
			return false
		}
	} else if !b.iter.Valid() {
		return false
	}
	if b.opts.UpperBound != nil && bytes.Compare(b.iter.Item().Key(), b.opts.UpperBound) > 0 {
		return false
	}
	return true
}

func (b *badgerIterator) Key() []byte {
	return b.iter.Item().KeyCopy(nil)
}

func (b *badgerIterator) Value() ([]byte, error) {
	return b.iter.Item().ValueCopy(nil)
}

func (b *badgerIterator) Next() error {
	b.iter.Next()
	return nil
}

func (b *badgerIterator) Close() {
	b.iter.Close()
}
