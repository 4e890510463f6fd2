package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions
type TransactionManager interface {
	// ExecTx executes a function within a transaction.
	// Calls made with a context that already carries a transaction join it.
	ExecTx(ctx context.Context, fn TxFn) error
}
