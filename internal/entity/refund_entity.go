package entity

import (
	"time"
)

type Refund struct {
	Id             uint64
	TransactionId  uint64
	StripeRefundId string
	ChargeId       *string
	AmountCents    *int64
	Currency       *string
	Status         *string
	Reason         *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
