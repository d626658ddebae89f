package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Transaction is one ledger row per real payment. The unique indexes are the
// ownership arbiters; NULLs never collide.
type Transaction struct {
	Id              uint64         `gorm:"primaryKey;autoIncrement"`
	PledgeId        *uint64        `gorm:"uniqueIndex:idx_transactions_pledge_invoice,priority:1"`
	StripeInvoiceId *string        `gorm:"type:varchar(255);uniqueIndex:idx_transactions_pledge_invoice,priority:2"`
	PaymentIntentId *string        `gorm:"type:varchar(255);uniqueIndex"`
	ChargeId        *string        `gorm:"type:varchar(255);uniqueIndex"`
	SubscriptionId  string         `gorm:"type:varchar(255);index"`
	CustomerId      string         `gorm:"type:varchar(255);index"`
	AttemptId       string         `gorm:"type:varchar(64);index"`
	UserId          *uuid.UUID     `gorm:"type:uuid;index"`
	PayerEmail      string         `gorm:"type:varchar(255);index"`
	Type            string         `gorm:"type:varchar(32);not null"`
	Status          string         `gorm:"type:varchar(20);not null;default:'pending'"`
	AmountCents     int64          `gorm:"not null;default:0"`
	Currency        string         `gorm:"type:varchar(10)"`
	PaidAt          *time.Time
	ReceiptUrl      *string        `gorm:"type:text"`
	Metadata        datatypes.JSON
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}
