package entity

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string
type TransactionStatus string

const (
	TransactionTypeOneTime               TransactionType = "one_time"
	TransactionTypeSubscriptionInitial   TransactionType = "subscription_initial"
	TransactionTypeSubscriptionRecurring TransactionType = "subscription_recurring"

	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusSucceeded TransactionStatus = "succeeded"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Metadata keys written by the ledger.
const (
	MetaPledgeId                  = "pledge_id"
	MetaAttemptId                 = "attempt_id"
	MetaUserId                    = "user_id"
	MetaTransactionId             = "transaction_id"
	MetaCard                      = "card"
	MetaPaymentIntentId           = "payment_intent_id"
	MetaChargeId                  = "charge_id"
	MetaInvoiceId                 = "invoice_id"
	MetaSupersededByTransactionId = "superseded_by_transaction_id"
	MetaSupersededInvoiceId       = "superseded_invoice_id"
	MetaDisplacedInvoiceId        = "displaced_invoice_id"
	MetaUnmatched                 = "unmatched"
	MetaFailedPaymentIntentId     = "failed_payment_intent_id"
	MetaLastError                 = "last_error"
)

// Transaction is the empty string for unset unique ids; the repository
// writes NULL for them.
type Transaction struct {
	Id              uint64
	PledgeId        *uint64
	StripeInvoiceId string
	PaymentIntentId string
	ChargeId        string
	SubscriptionId  string
	CustomerId      string
	AttemptId       string
	UserId          *uuid.UUID
	PayerEmail      string
	Type            TransactionType
	Status          TransactionStatus
	AmountCents     int64
	Currency        string
	PaidAt          *time.Time
	ReceiptUrl      string
	Metadata        map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (t *Transaction) IsSucceeded() bool {
	return t.Status == TransactionStatusSucceeded
}

// SetMeta writes a key into Metadata, allocating the map on first use.
func (t *Transaction) SetMeta(key string, value any) {
	if t.Metadata == nil {
		t.Metadata = map[string]any{}
	}
	t.Metadata[key] = value
}
