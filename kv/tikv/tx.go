package tikv

import (
	"context"
	"fmt"

	"github.com/autom8ter/docstore/kv"
	"github.com/autom8ter/docstore/kv/kvutil"
	tikvErr "github.com/tikv/client-go/v2/error"
	"github.com/tikv/client-go/v2/txnkv/transaction"
)

var errReadOnly = fmt.Errorf("tikv: write in read-only transaction")

type tikvTx struct {
	txn  *transaction.KVTxn
	opts kv.TxOpts
	db   *tikvKV
	done bool
}

func (t *tikvTx) NewIterator(kopts kv.IterOpts) (kv.Iterator, error) {
	if kopts.Reverse {
		seek := kopts.Seek
		if seek == nil {
			seek = kopts.UpperBound
		}
		if seek == nil {
			seek = kopts.Prefix
		}
		iter, err := t.txn.IterReverse(kvutil.NextPrefix(seek))
		if err != nil {
			return nil, err
		}
		return &tikvIterator{iter: iter, opts: kopts}, nil
	}
	start := kopts.Seek
	if start == nil {
		start = kopts.Prefix
	}
	var end []byte
	if kopts.UpperBound != nil {
		end = kvutil.NextPrefix(kopts.UpperBound)
	} else if kopts.Prefix != nil {
		_, end = kvutil.PrefixSpan(kopts.Prefix)
	}
	iter, err := t.txn.Iter(start, end)
	if err != nil {
		return nil, err
	}
	return &tikvIterator{iter: iter, opts: kopts}, nil
}

func (t *tikvTx) Get(ctx context.Context, key []byte) ([]byte, error) {
	val, err := t.txn.Get(ctx, key)
	if err != nil {
		if tikvErr.IsErrNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

func (t *tikvTx) Set(ctx context.Context, key, value []byte) error {
	if t.opts.IsReadOnly {
		return errReadOnly
	}
	return t.txn.Set(key, value)
}

func (t *tikvTx) Delete(ctx context.Context, key []byte) error {
	if t.opts.IsReadOnly {
		return errReadOnly
	}
	return t.txn.Delete(key)
}

func (t *tikvTx) Rollback(ctx context.Context) {
	t.done = true
	t.txn.Rollback()
}

func (t *tikvTx) Commit(ctx context.Context) error {
	t.done = true
	if t.opts.IsReadOnly {
		return t.txn.Rollback()
	}
	return t.txn.Commit(ctx)
}

func (t *tikvTx) Close(ctx context.Context) {
	if t.done {
		return
	}
	t.done = true
	t.txn.Rollback()
}
