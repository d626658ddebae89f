package specification

import (
	"strings"

	"gorm.io/gorm"
)

type ByPaymentIntentId struct {
	PaymentIntentId string
}

func (s ByPaymentIntentId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("payment_intent_id = ?", s.PaymentIntentId)
}

type ByChargeId struct {
	ChargeId string
}

func (s ByChargeId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("charge_id = ?", s.ChargeId)
}

// ByPledgeInvoice matches the compound (pledge_id, stripe_invoice_id) key.
// A nil pledge matches rows with no pledge.
type ByPledgeInvoice struct {
	PledgeId  *uint64
	InvoiceId string
}

func (s ByPledgeInvoice) Apply(db *gorm.DB) *gorm.DB {
	if s.PledgeId == nil {
		db = db.Where("pledge_id IS NULL")
	} else {
		db = db.Where("pledge_id = ?", *s.PledgeId)
	}
	return db.Where("stripe_invoice_id = ?", s.InvoiceId)
}

type ByAttemptId struct {
	AttemptId string
}

func (s ByAttemptId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("attempt_id = ?", s.AttemptId)
}

type BySubscriptionId struct {
	SubscriptionId string
}

func (s BySubscriptionId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("subscription_id = ?", s.SubscriptionId)
}

type ByPledgeId struct {
	PledgeId uint64
}

func (s ByPledgeId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("pledge_id = ?", s.PledgeId)
}

type ByLatestPaymentIntentId struct {
	PaymentIntentId string
}

func (s ByLatestPaymentIntentId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("latest_payment_intent_id = ?", s.PaymentIntentId)
}

// ByPayerEmail compares case-insensitively.
type ByPayerEmail struct {
	Email string
}

func (s ByPayerEmail) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("LOWER(payer_email) = ?", strings.ToLower(strings.TrimSpace(s.Email)))
}

type HasCustomer struct{}

func (s HasCustomer) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("customer_id <> ''")
}

type ByStripeRefundId struct {
	StripeRefundId string
}

func (s ByStripeRefundId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("stripe_refund_id = ?", s.StripeRefundId)
}

type ByEventId struct {
	EventId string
}

func (s ByEventId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("event_id = ?", s.EventId)
}

// ByInvoiceId matches an invoice regardless of pledge.
type ByInvoiceId struct {
	InvoiceId string
}

func (s ByInvoiceId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("stripe_invoice_id = ?", s.InvoiceId)
}

type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}
