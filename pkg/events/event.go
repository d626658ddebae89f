package events

import "time"

// Ledger event types. Each is published on subject events.<TYPE>.
const (
	TransactionSucceeded   = "TRANSACTION_SUCCEEDED"
	PledgeActivated        = "PLEDGE_ACTIVATED"
	PledgeCanceled         = "PLEDGE_CANCELED"
	RefundCreated          = "REFUND_CREATED"
	LedgerUnmatchedPayment = "LEDGER_UNMATCHED_PAYMENT"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "PLEDGE_ACTIVATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Deduplicated events carry a stable id so the broker drops redeliveries
// of the same fact.
type Deduplicated interface {
	DedupeID() string
}

type BaseEvent struct {
	Type       string
	Key        string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func (e BaseEvent) DedupeID() string {
	if e.Key == "" {
		return ""
	}
	return e.Type + ":" + e.Key
}
