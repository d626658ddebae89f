package entity

import (
	"time"

	"github.com/google/uuid"
)

type PledgeStatus string
type PledgeInterval string

const (
	PledgeStatusIncomplete PledgeStatus = "incomplete"
	PledgeStatusActive     PledgeStatus = "active"
	PledgeStatusPastDue    PledgeStatus = "past_due"
	PledgeStatusCanceled   PledgeStatus = "canceled"

	PledgeIntervalDay   PledgeInterval = "day"
	PledgeIntervalWeek  PledgeInterval = "week"
	PledgeIntervalMonth PledgeInterval = "month"
	PledgeIntervalYear  PledgeInterval = "year"
)

// Pledge is a donor's recurring giving commitment. Period fields only ever
// come from the processor.
type Pledge struct {
	Id                    uint64
	UserId                *uuid.UUID
	AttemptId             string
	SubscriptionId        string
	CustomerId            string
	DonorEmail            string
	DonorName             string
	AmountCents           int64
	Currency              string
	Interval              PledgeInterval
	Status                PledgeStatus
	CancelAtPeriodEnd     bool
	CurrentPeriodStart    *time.Time
	CurrentPeriodEnd      *time.Time
	LastPledgeAt          *time.Time
	NextPledgeAt          *time.Time
	LatestInvoiceId       string
	LatestPaymentIntentId string
	StripePriceId         string
	StripeProductId       string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (p *Pledge) IsCanceled() bool {
	return p.Status == PledgeStatusCanceled
}

func (i PledgeInterval) Valid() bool {
	switch i {
	case PledgeIntervalDay, PledgeIntervalWeek, PledgeIntervalMonth, PledgeIntervalYear:
		return true
	}
	return false
}
