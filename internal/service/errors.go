package service

import "errors"

var (
	ErrPledgeNotFound       = errors.New("pledge not found")
	ErrPledgeCanceled       = errors.New("pledge is canceled")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrNoSubscription       = errors.New("pledge has no processor subscription")
	ErrSubscriptionExists   = errors.New("pledge already has a processor subscription")
	ErrNoCharge             = errors.New("transaction has no charge to refund")
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrInvalidInterval      = errors.New("interval must be one of day, week, month, year")
	ErrUnsupportedEventType = errors.New("unsupported event type")
)
