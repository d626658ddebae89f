package service

import (
	"context"
	"fmt"

	"giving-ledger-be/internal/entity"
	"giving-ledger-be/internal/repository/specification"
	"giving-ledger-be/internal/repository/unitofwork"
)

// ITransactionResolver picks the single ledger row an invoice event updates.
type ITransactionResolver interface {
	// Resolve locks and returns the canonical row for the invoice, or nil
	// when none exists yet. Lookup order: payment intent, (pledge, invoice),
	// newest pending placeholder for the pledge's attempt.
	Resolve(ctx context.Context, uow unitofwork.UnitOfWork, pledge *entity.Pledge, invoiceId, paymentIntentId string) (*entity.Transaction, error)
}

type transactionResolver struct{}

func NewTransactionResolver() ITransactionResolver {
	return &transactionResolver{}
}

func (r *transactionResolver) Resolve(ctx context.Context, uow unitofwork.UnitOfWork, pledge *entity.Pledge, invoiceId, paymentIntentId string) (*entity.Transaction, error) {
	repo := uow.TransactionRepository()

	if paymentIntentId != "" {
		tx, err := repo.FindOne(ctx,
			specification.ByPaymentIntentId{PaymentIntentId: paymentIntentId},
			specification.ForUpdate{},
		)
		if err != nil {
			return nil, fmt.Errorf("resolve by payment intent: %w", err)
		}
		if tx != nil {
			return tx, nil
		}
	}

	var pledgeId *uint64
	if pledge != nil {
		pledgeId = &pledge.Id
	}

	if invoiceId != "" {
		tx, err := repo.FindOne(ctx,
			specification.ByPledgeInvoice{PledgeId: pledgeId, InvoiceId: invoiceId},
			specification.ForUpdate{},
		)
		if err != nil {
			return nil, fmt.Errorf("resolve by invoice: %w", err)
		}
		if tx != nil {
			return tx, nil
		}
	}

	if pledge == nil || pledge.AttemptId == "" {
		return nil, nil
	}

	// A placeholder that already carries an invoice, or a different payment
	// intent, belongs to some other payment.
	specs := []specification.Specification{
		specification.ByAttemptId{AttemptId: pledge.AttemptId},
		specification.ByStatus{Status: string(entity.TransactionStatusPending)},
		specification.IsNull{Field: "stripe_invoice_id"},
	}
	if paymentIntentId != "" {
		specs = append(specs, specification.IsNull{Field: "payment_intent_id"})
	}
	specs = append(specs, specification.Newest(), specification.ForUpdate{})

	tx, err := repo.FindOne(ctx, specs...)
	if err != nil {
		return nil, fmt.Errorf("resolve by attempt: %w", err)
	}
	return tx, nil
}
