package tikv

import (
	"context"
	"fmt"

	"github.com/autom8ter/docstore/kv"
	"github.com/autom8ter/docstore/kv/kvutil"
	"github.com/autom8ter/docstore/kv/registry"
	"github.com/spf13/cast"
	"github.com/tikv/client-go/v2/txnkv"
)

func init() {
	registry.Register("tikv", func(params map[string]interface{}) (kv.DB, error) {
		if params["pd_addr"] == nil {
			return nil, fmt.Errorf("tikv: 'pd_addr' is a required parameter")
		}
		return open(cast.ToStringSlice(params["pd_addr"]))
	})
}

type tikvKV struct {
	db *txnkv.Client
}

func open(pdAddrs []string) (kv.DB, error) {
	if len(pdAddrs) == 0 {
		return nil, fmt.Errorf("tikv: at least one pd address is required")
	}
	client, err := txnkv.NewClient(pdAddrs)
	if err != nil {
		return nil, err
	}
	return &tikvKV{db: client}, nil
}

func (t *tikvKV) Tx(ctx context.Context, opts kv.TxOpts, fn kv.TxFunc) error {
	tx, err := t.NewTx(opts)
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

func (t *tikvKV) NewTx(opts kv.TxOpts) (kv.Tx, error) {
	txn, err := t.db.Begin()
	if err != nil {
		return nil, err
	}
	return &tikvTx{txn: txn, db: t, opts: opts}, nil
}

func (t *tikvKV) DropPrefix(ctx context.Context, prefix ...[]byte) error {
	for _, p := range prefix {
		start, end := kvutil.PrefixSpan(p)
		if _, err := t.db.DeleteRange(ctx, start, end, 1); err != nil {
			return err
		}
	}
	return nil
}

func (t *tikvKV) Close(ctx context.Context) error {
	return t.db.Close()
}
