package badger

import (
	"context"
	"sync/atomic"

	"github.com/autom8ter/docstore/kv"
	"github.com/autom8ter/docstore/kv/registry"
	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/ristretto"
	"github.com/spf13/cast"
)

func init() {
	registry.Register("badger", func(params map[string]interface{}) (kv.DB, error) {
		return open(cast.ToString(params["storage_path"]))
	})
}

type badgerKV struct {
	db    *badger.DB
	cache *ristretto.Cache
	// epoch increments on every write commit; read caching is tagged with the
	// epoch of the transaction's snapshot so a commit invalidates prior entries
	epoch uint64
}

// open opens a badger database at the given storage path. An empty path opens
// an in-memory database.
func open(storagePath string) (kv.DB, error) {
	opts := badger.DefaultOptions(storagePath).WithLoggingLevel(badger.ERROR)
	if storagePath == "" {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100000,
		MaxCost:     1e8, // bytes
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &badgerKV{db: db, cache: cache}, nil
}

func (b *badgerKV) Tx(ctx context.Context, opts kv.TxOpts, fn kv.TxFunc) error {
	tx, err := b.NewTx(opts)
	if err != nil {
		return err
	}
	defer tx.Close(ctx)
	if err := fn(ctx, tx); err != nil {
		tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (b *badgerKV) NewTx(opts kv.TxOpts) (kv.Tx, error) {
	tx := &badgerTx{opts: opts, db: b, epoch: atomic.LoadUint64(&b.epoch)}
	if opts.IsBatch {
		tx.batch = b.db.NewWriteBatch()
	} else {
		tx.txn = b.db.NewTransaction(!opts.IsReadOnly)
	}
	return tx, nil
}

func (b *badgerKV) DropPrefix(ctx context.Context, prefix ...[]byte) error {
	atomic.AddUint64(&b.epoch, 1)
	return b.db.DropPrefix(prefix...)
}

func (b *badgerKV) Close(ctx context.Context) error {
	if !b.db.Opts().InMemory {
		if err := b.db.Sync(); err != nil {
			return err
		}
	}
	b.cache.Close()
	return b.db.Close()
}
