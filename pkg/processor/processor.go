// Package processor is the narrow slice of the payment processor API the
// ledger depends on. Responses are reduced to the fields the ledger reads.
package processor

import (
	"context"
	"time"
)

type Gateway interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)
	CreatePrice(ctx context.Context, params PriceParams) (*Price, error)
	CreateSubscription(ctx context.Context, params SubscriptionParams) (*Subscription, error)
	GetSubscription(ctx context.Context, subscriptionId string) (*Subscription, error)
	UpdateSubscription(ctx context.Context, subscriptionId string, params SubscriptionUpdateParams) (*Subscription, error)
	CreateRefund(ctx context.Context, params RefundParams) (*Refund, error)
	GetCharge(ctx context.Context, chargeId string) (*Charge, error)
}

type CustomerParams struct {
	Email    string
	Name     string
	Metadata map[string]string
}

type PriceParams struct {
	ProductId   string
	AmountCents int64
	Currency    string
	Interval    string
}

type Price struct {
	Id        string
	ProductId string
}

type SubscriptionParams struct {
	CustomerId      string
	PriceId         string
	PaymentMethodId string
	Metadata        map[string]string
	IdempotencyKey  string
}

// SubscriptionUpdateParams changes only the fields that are set.
type SubscriptionUpdateParams struct {
	CancelAtPeriodEnd *bool
	ItemId            string
	PriceId           string
	IdempotencyKey    string
}

// Subscription is the processor subscription as the ledger sees it.
// LatestInvoiceAmountCents is amount_paid, or amount_due while unpaid.
type Subscription struct {
	Id                       string
	CustomerId               string
	Status                   string
	CancelAtPeriodEnd        bool
	CurrentPeriodStart       *time.Time
	CurrentPeriodEnd         *time.Time
	ItemId                   string
	PriceId                  string
	ProductId                string
	AmountCents              int64
	Currency                 string
	Interval                 string
	LatestInvoiceId          string
	LatestInvoiceStatus      string
	LatestInvoiceAmountCents int64
	LatestPaymentIntentId    string
	LatestChargeId           string
	Metadata                 map[string]string
}

// LatestInvoicePaid is true once the first invoice has settled.
func (s *Subscription) LatestInvoicePaid() bool {
	return s.LatestInvoiceStatus == "paid"
}

type RefundParams struct {
	ChargeId       string
	AmountCents    int64
	Metadata       map[string]string
	IdempotencyKey string
}

type Refund struct {
	Id          string
	ChargeId    string
	AmountCents int64
	Currency    string
	Status      string
	Reason      string
}

type Charge struct {
	Id              string
	PaymentIntentId string
	AmountCents     int64
	Currency        string
	Paid            bool
	Status          string
	ReceiptUrl      string
	CardMeta        map[string]any
	Created         *time.Time
}

// Status values of a processor subscription.
const (
	SubscriptionActive            = "active"
	SubscriptionTrialing          = "trialing"
	SubscriptionPastDue           = "past_due"
	SubscriptionUnpaid            = "unpaid"
	SubscriptionPaused            = "paused"
	SubscriptionCanceled          = "canceled"
	SubscriptionIncomplete        = "incomplete"
	SubscriptionIncompleteExpired = "incomplete_expired"
)

// UnixTime converts processor epoch seconds, treating zero as absent.
func UnixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
