package repositories

import "context"

// TxFn runs with a transaction carried in ctx; returning an error rolls
// the transaction back.
type TxFn func(ctx context.Context) error

// TransactionManager runs multi-row mutations (document reorders, section
// moves) atomically.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
