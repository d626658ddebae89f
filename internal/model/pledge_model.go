package model

import (
	"time"

	"github.com/google/uuid"
)

type Pledge struct {
	Id                    uint64     `gorm:"primaryKey;autoIncrement"`
	UserId                *uuid.UUID `gorm:"type:uuid;index"`
	AttemptId             string     `gorm:"type:varchar(64);index"`
	SubscriptionId        *string    `gorm:"type:varchar(255);uniqueIndex"`
	CustomerId            string     `gorm:"type:varchar(255);index"`
	DonorEmail            string     `gorm:"type:varchar(255);index"`
	DonorName             string     `gorm:"type:varchar(255)"`
	AmountCents           int64      `gorm:"not null"`
	Currency              string     `gorm:"type:varchar(10);not null"`
	Interval              string     `gorm:"type:varchar(10);not null;default:'month'"`
	Status                string     `gorm:"type:varchar(20);not null;default:'incomplete'"`
	CancelAtPeriodEnd     bool       `gorm:"not null;default:false"`
	CurrentPeriodStart    *time.Time
	CurrentPeriodEnd      *time.Time
	LastPledgeAt          *time.Time
	NextPledgeAt          *time.Time
	LatestInvoiceId       string    `gorm:"type:varchar(255)"`
	LatestPaymentIntentId string    `gorm:"type:varchar(255);index"`
	StripePriceId         string    `gorm:"type:varchar(255)"`
	StripeProductId       string    `gorm:"type:varchar(255)"`
	CreatedAt             time.Time `gorm:"autoCreateTime"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime"`
}

func (Pledge) TableName() string {
	return "pledges"
}
