package entity

import (
	"encoding/json"
	"time"
)

type WebhookEventStatus string

const (
	WebhookEventStatusReceived  WebhookEventStatus = "received"
	WebhookEventStatusProcessed WebhookEventStatus = "processed"
	WebhookEventStatusFailed    WebhookEventStatus = "failed"
)

type WebhookEvent struct {
	Id          uint64
	EventId     string
	Type        string
	Payload     json.RawMessage
	Status      WebhookEventStatus
	Attempts    int
	LastError   string
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
