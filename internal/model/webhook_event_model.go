package model

import (
	"time"

	"gorm.io/datatypes"
)

type WebhookEvent struct {
	Id          uint64 `gorm:"primaryKey;autoIncrement"`
	EventId     string `gorm:"type:varchar(255);uniqueIndex;not null"`
	Type        string `gorm:"type:varchar(100);index;not null"`
	Payload     datatypes.JSON
	Status      string `gorm:"type:varchar(20);not null;default:'received'"`
	Attempts    int    `gorm:"not null;default:0"`
	LastError   string `gorm:"type:text"`
	ProcessedAt *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
