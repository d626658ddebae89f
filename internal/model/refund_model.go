package model

import (
	"time"
)

type Refund struct {
	Id             uint64  `gorm:"primaryKey;autoIncrement"`
	TransactionId  uint64  `gorm:"not null;index"`
	StripeRefundId string  `gorm:"type:varchar(255);uniqueIndex;not null"`
	ChargeId       *string `gorm:"type:varchar(255);index"`
	AmountCents    *int64
	Currency       *string   `gorm:"type:varchar(10)"`
	Status         *string   `gorm:"type:varchar(50)"` // pending, succeeded, failed, canceled
	Reason         *string   `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Refund) TableName() string {
	return "refunds"
}
