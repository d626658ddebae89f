package dto

import (
	"time"

	"github.com/google/uuid"
)

// --- Donor Flow ---

type StartPledgeRequest struct {
	DonorEmail  string     `json:"donor_email" validate:"required,email"`
	DonorName   string     `json:"donor_name" validate:"max=255"`
	AmountCents int64      `json:"amount_cents" validate:"required,gt=0"`
	Currency    string     `json:"currency" validate:"omitempty,len=3"`
	Interval    string     `json:"interval" validate:"omitempty,oneof=day week month year"`
	UserId      *uuid.UUID `json:"user_id,omitempty"`
}

type StartPledgeResponse struct {
	PledgeId      uint64 `json:"pledge_id"`
	TransactionId uint64 `json:"transaction_id"`
	AttemptId     string `json:"attempt_id"`
}

type StartOneTimeGiftRequest struct {
	DonorEmail  string     `json:"donor_email" validate:"required,email"`
	DonorName   string     `json:"donor_name" validate:"max=255"`
	AmountCents int64      `json:"amount_cents" validate:"required,gt=0"`
	Currency    string     `json:"currency" validate:"omitempty,len=3"`
	UserId      *uuid.UUID `json:"user_id,omitempty"`
}

type StartOneTimeGiftResponse struct {
	TransactionId uint64 `json:"transaction_id"`
	AttemptId     string `json:"attempt_id"`
}

type CustomerAttributes struct {
	Email    string
	Name     string
	PledgeId uint64
}

// --- Admin Actions ---

type SubscribePledgeRequest struct {
	PaymentMethodId string `json:"payment_method_id" validate:"required"`
}

type UpdatePledgeAmountRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}

// --- Read Models ---

type PledgeResponse struct {
	Id                 uint64     `json:"id"`
	SubscriptionId     string     `json:"subscription_id,omitempty"`
	CustomerId         string     `json:"customer_id,omitempty"`
	DonorEmail         string     `json:"donor_email"`
	DonorName          string     `json:"donor_name,omitempty"`
	AmountCents        int64      `json:"amount_cents"`
	Currency           string     `json:"currency"`
	Interval           string     `json:"interval"`
	Status             string     `json:"status"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	LastPledgeAt       *time.Time `json:"last_pledge_at,omitempty"`
	NextPledgeAt       *time.Time `json:"next_pledge_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type TransactionResponse struct {
	Id              uint64         `json:"id"`
	PledgeId        *uint64        `json:"pledge_id,omitempty"`
	Type            string         `json:"type"`
	Status          string         `json:"status"`
	AmountCents     int64          `json:"amount_cents"`
	Currency        string         `json:"currency"`
	PayerEmail      string         `json:"payer_email,omitempty"`
	PaymentIntentId string         `json:"payment_intent_id,omitempty"`
	ChargeId        string         `json:"charge_id,omitempty"`
	InvoiceId       string         `json:"invoice_id,omitempty"`
	ReceiptUrl      string         `json:"receipt_url,omitempty"`
	PaidAt          *time.Time     `json:"paid_at,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

type RefundResponse struct {
	Id             uint64 `json:"id"`
	TransactionId  uint64 `json:"transaction_id"`
	StripeRefundId string `json:"stripe_refund_id"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
}

type ListTransactionsFilter struct {
	PledgeId   *uint64 `query:"pledge_id"`
	PayerEmail string  `query:"payer_email" validate:"omitempty,email"`
	Limit      int     `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset     int     `query:"offset" validate:"omitempty,min=0"`
}

// --- Webhook ---

type WebhookAck struct {
	Received bool   `json:"received"`
	Status   string `json:"status"`
}
