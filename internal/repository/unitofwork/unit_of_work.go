package unitofwork

import (
	"context"

	"giving-ledger-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	InTransaction() bool

	PledgeRepository() contract.PledgeRepository
	TransactionRepository() contract.TransactionRepository
	RefundRepository() contract.RefundRepository
	WebhookEventRepository() contract.WebhookEventRepository
}
