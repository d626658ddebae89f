package dto

import (
	"time"
)

// Typed views of webhook payloads. Every id is "" when the payload did not
// carry it in any known shape.

type InvoiceEvent struct {
	Id               string
	SubscriptionId   string
	CustomerId       string
	CustomerEmail    string
	CustomerName     string
	PaymentIntentId  string
	ChargeId         string
	AmountPaid       int64
	AmountDue        int64
	Currency         string
	BillingReason    string
	Status           string
	PaidAt           *time.Time
	PeriodStart      *time.Time
	PeriodEnd        *time.Time
	HostedInvoiceUrl string
	Metadata         map[string]string
}

// IsRecurring reports whether the invoice was raised by a renewal rather than
// the subscription's creation.
func (e *InvoiceEvent) IsRecurring() bool {
	return e.BillingReason == "subscription_cycle"
}

type PaymentIntentEvent struct {
	Id               string
	InvoiceId        string
	CustomerId       string
	AmountCents      int64
	Currency         string
	Status           string
	LatestChargeId   string
	ReceiptEmail     string
	LastErrorMessage string
	Metadata         map[string]string
	// Charge is set when the payload embeds the charge object.
	Charge *ChargeEvent
}

type SubscriptionEvent struct {
	Id                 string
	CustomerId         string
	Status             string
	CancelAtPeriodEnd  bool
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	ItemId             string
	PriceId            string
	ProductId          string
	AmountCents        int64
	Currency           string
	Interval           string
	LatestInvoiceId    string
	Metadata           map[string]string
}

type ChargeEvent struct {
	Id              string
	PaymentIntentId string
	InvoiceId       string
	CustomerId      string
	AmountCents     int64
	AmountRefunded  int64
	Currency        string
	Paid            bool
	Status          string
	ReceiptUrl      string
	CardMeta        map[string]any
	Created         *time.Time
	Refunds         []RefundEvent
}

type RefundEvent struct {
	Id              string
	ChargeId        string
	PaymentIntentId string
	AmountCents     int64
	Currency        string
	Status          string
	Reason          string
	Metadata        map[string]string
}

// InvoicePaymentEvent links an invoice to the payment that settled it.
type InvoicePaymentEvent struct {
	Id              string
	InvoiceId       string
	PaymentIntentId string
	ChargeId        string
	Status          string
}
