package badger

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/autom8ter/docstore/kv"
	"github.com/dgraph-io/badger/v3"
)

type badgerTx struct {
	opts  kv.TxOpts
	batch *badger.WriteBatch
	txn   *badger.Txn
	db    *badgerKV
	epoch uint64
	done  bool
}

func (b *badgerTx) NewIterator(kopts kv.IterOpts) (kv.Iterator, error) {
	if b.txn == nil {
		return nil, fmt.Errorf("iteration unsupported in batch transactions")
	}
	iopts := badger.DefaultIteratorOptions
	iopts.Prefix = kopts.Prefix
	iopts.Reverse = kopts.Reverse
	// reverse scans start from the upper bound when no seek key is given
	seek := kopts.Seek
	if seek == nil && kopts.Reverse {
		seek = kopts.UpperBound
	}
	iter := b.txn.NewIterator(iopts)
	if seek == nil {
		iter.Rewind()
	} else {
		iter.Seek(seek)
	}
	return &badgerIterator{iter: iter, opts: kopts}, nil
}

func (b *badgerTx) Get(ctx context.Context, key []byte) ([]byte, error) {
	if b.txn == nil {
		return nil, fmt.Errorf("reads unsupported in batch transactions")
	}
	if b.opts.IsReadOnly {
		if cached, ok := b.db.cache.Get(b.cacheKey(key)); ok {
			if bits, ok := cached.([]byte); ok {
				return bits, nil
			}
		}
	}
	i, err := b.txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	val, err := i.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	if b.opts.IsReadOnly {
		b.db.cache.Set(b.cacheKey(key), val, int64(len(val)))
	}
	return val, nil
}

func (b *badgerTx) Set(ctx context.Context, key, value []byte) error {
	entry := badger.NewEntry(key, value)
	if b.batch != nil {
		return b.batch.SetEntry(entry)
	}
	return b.txn.SetEntry(entry)
}

func (b *badgerTx) Delete(ctx context.Context, key []byte) error {
	if b.batch != nil {
		return b.batch.Delete(key)
	}
	return b.txn.Delete(key)
}

func (b *badgerTx) Rollback(ctx context.Context) {
	if b.batch != nil {
		b.batch.Cancel()
	}
	if b.txn != nil {
		b.txn.Discard()
	}
	b.done = true
}

func (b *badgerTx) Commit(ctx context.Context) error {
	b.done = true
	if b.batch != nil {
		if err := b.batch.Flush(); err != nil {
			return err
		}
		atomic.AddUint64(&b.db.epoch, 1)
		return nil
	}
	if b.txn != nil {
		if err := b.txn.Commit(); err != nil {
			return err
		}
		if !b.opts.IsReadOnly {
			atomic.AddUint64(&b.db.epoch, 1)
		}
	}
	return nil
}

func (b *badgerTx) Close(ctx context.Context) {
	if b.done {
		return
	}
	if b.txn != nil {
		b.txn.Discard()
	}
	if b.batch != nil {
		b.batch.Cancel()
	}
	b.done = true
}

// cacheKey tags the key with the snapshot epoch so entries cached before a
// write commit are never served after it
func (b *badgerTx) cacheKey(key []byte) string {
	return fmt.Sprintf("%d.%s", b.epoch, key)
}
