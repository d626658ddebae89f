package unitofwork

import "context"

// TxFunc runs inside an open transaction. Returning an error rolls it back.
type TxFunc func(uow UnitOfWork) error

type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
	// RunInTransaction owns the transaction boundary: begin, run fn, commit.
	// Lock-wait, deadlock, serialization and unique-race failures restart fn
	// in a fresh transaction until the attempt budget is spent.
	RunInTransaction(ctx context.Context, fn TxFunc) error
}
