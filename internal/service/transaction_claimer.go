package service

import (
	"context"
	"fmt"

	"giving-ledger-be/internal/entity"
	"giving-ledger-be/internal/repository/specification"
	"giving-ledger-be/internal/repository/unitofwork"
)

// ITransactionClaimer attaches processor ids to exactly one ledger row. Every
// method runs inside the caller's open unit of work and returns the row that
// owns the id afterwards: tx itself, or a different row that got there first.
type ITransactionClaimer interface {
	// ClaimPaymentIntent sets tx.PaymentIntentId when nobody else owns it.
	// The caller persists tx.
	ClaimPaymentIntent(ctx context.Context, uow unitofwork.UnitOfWork, tx *entity.Transaction, paymentIntentId string) (*entity.Transaction, error)
	// ClaimCharge sets tx.ChargeId when nobody else owns it. The caller
	// persists tx.
	ClaimCharge(ctx context.Context, uow unitofwork.UnitOfWork, tx *entity.Transaction, chargeId string) (*entity.Transaction, error)
	// ClaimInvoice sets and persists tx.StripeInvoiceId, scoped to tx.PledgeId.
	ClaimInvoice(ctx context.Context, uow unitofwork.UnitOfWork, tx *entity.Transaction, invoiceId string) (*entity.Transaction, error)
}

type transactionClaimer struct{}

func NewTransactionClaimer() ITransactionClaimer {
	return &transactionClaimer{}
}

func (c *transactionClaimer) ClaimPaymentIntent(ctx context.Context, uow unitofwork.UnitOfWork, tx *entity.Transaction, paymentIntentId string) (*entity.Transaction, error) {
	if paymentIntentId == "" || tx.PaymentIntentId != "" {
		return tx, nil
	}

	owner, err := uow.TransactionRepository().FindOne(ctx,
		specification.ByPaymentIntentId{PaymentIntentId: paymentIntentId},
		specification.ForUpdate{},
	)
	if err != nil {
		return nil, fmt.Errorf("lock payment intent %s: %w", paymentIntentId, err)
	}
	if owner != nil && !sameRow(owner, tx) {
		return owner, nil
	}

	tx.PaymentIntentId = paymentIntentId
	return tx, nil
}

func (c *transactionClaimer) ClaimCharge(ctx context.Context, uow unitofwork.UnitOfWork, tx *entity.Transaction, chargeId string) (*entity.Transaction, error) {
	if chargeId == "" || tx.ChargeId != "" {
		return tx, nil
	}

	owner, err := uow.TransactionRepository().FindOne(ctx,
		specification.ByChargeId{ChargeId: chargeId},
		specification.ForUpdate{},
	)
	if err != nil {
		return nil, fmt.Errorf("lock charge %s: %w", chargeId, err)
	}
	if owner != nil && !sameRow(owner, tx) {
		return owner, nil
	}

	tx.ChargeId = chargeId
	return tx, nil
}

func (c *transactionClaimer) ClaimInvoice(ctx context.Context, uow unitofwork.UnitOfWork, tx *entity.Transaction, invoiceId string) (*entity.Transaction, error) {
	if invoiceId == "" {
		return tx, nil
	}

	owner, err := uow.TransactionRepository().FindOne(ctx,
		specification.ByPledgeInvoice{PledgeId: tx.PledgeId, InvoiceId: invoiceId},
		specification.ForUpdate{},
	)
	if err != nil {
		return nil, fmt.Errorf("lock invoice %s: %w", invoiceId, err)
	}
	if owner != nil && !sameRow(owner, tx) {
		return owner, nil
	}
	if tx.StripeInvoiceId != "" {
		return tx, nil
	}

	tx.StripeInvoiceId = invoiceId
	if err := saveTransaction(ctx, uow, tx); err != nil {
		return nil, fmt.Errorf("claim invoice %s: %w", invoiceId, err)
	}
	return tx, nil
}

// sameRow compares persisted identity. An unsaved row never matches.
func sameRow(a, b *entity.Transaction) bool {
	return a.Id != 0 && a.Id == b.Id
}

func saveTransaction(ctx context.Context, uow unitofwork.UnitOfWork, tx *entity.Transaction) error {
	if tx.Id == 0 {
		return uow.TransactionRepository().Create(ctx, tx)
	}
	return uow.TransactionRepository().Update(ctx, tx)
}
