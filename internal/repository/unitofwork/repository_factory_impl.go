package unitofwork

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const DefaultMaxAttempts = 3

var retryableSQLStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
}

type RepositoryFactoryImpl struct {
	db          *gorm.DB
	maxAttempts int
	backoff     time.Duration
}

type Option func(*RepositoryFactoryImpl)

func WithMaxAttempts(n int) Option {
	return func(f *RepositoryFactoryImpl) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

func WithBackoff(d time.Duration) Option {
	return func(f *RepositoryFactoryImpl) {
		f.backoff = d
	}
}

func NewRepositoryFactory(db *gorm.DB, opts ...Option) RepositoryFactory {
	f := &RepositoryFactoryImpl{
		db:          db,
		maxAttempts: DefaultMaxAttempts,
		backoff:     25 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *RepositoryFactoryImpl) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return NewUnitOfWork(f.db)
}

func (f *RepositoryFactoryImpl) RunInTransaction(ctx context.Context, fn TxFunc) error {
	var err error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		err = f.runOnce(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == f.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.backoff * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", f.maxAttempts, err)
}

func (f *RepositoryFactoryImpl) runOnce(ctx context.Context, fn TxFunc) (err error) {
	uow := f.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = uow.Rollback()
			panic(r)
		}
		if err != nil && uow.InTransaction() {
			_ = uow.Rollback()
		}
	}()

	if err = fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}

// IsRetryable reports whether err is a transient contention failure that a
// fresh transaction may not hit again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retryableSQLStates[pgErr.Code]
	}
	return false
}
