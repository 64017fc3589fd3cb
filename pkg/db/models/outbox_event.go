package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/enums"
)

// OutboxEvent is written in the same transaction as the state change it
// describes. A relay dispatches pending rows after commit, giving
// at-least-once delivery without coupling the order transaction to any
// notification transport.
type OutboxEvent struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	EventType    enums.OutboxEventType `gorm:"column:event_type;not null"`
	AggregateID  uuid.UUID             `gorm:"column:aggregate_id;type:uuid;not null;index"`
	Payload      json.RawMessage       `gorm:"column:payload;type:jsonb"`
	Status       enums.OutboxStatus    `gorm:"column:status;not null;default:'pending';index"`
	DispatchedAt *time.Time            `gorm:"column:dispatched_at"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
