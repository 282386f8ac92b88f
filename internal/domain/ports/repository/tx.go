package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside a database transaction and hands the
// transaction to fn as an opaque Tx.
//
// Repositories accept that handle in every method and must also accept NoTX,
// in which case they run against the pool. When the handle is a live
// transaction, reads that precede a guarded write may take row locks.
//
// USAGE
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx Tx) error {
//		ok, err := vouchers.MarkUsed(ctx, tx, code, now)
//		...
//		return sessions.Create(ctx, tx, s)
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
