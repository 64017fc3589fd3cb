package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/enums"
)

// Notification is the durable record produced by the outbox relay for an
// order lifecycle event. Each owning party of the order gets its own row.
type Notification struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	SupplierID   *uuid.UUID            `gorm:"column:supplier_id;type:uuid;index"`
	RestaurantID *uuid.UUID            `gorm:"column:restaurant_id;type:uuid;index"`
	OrderID      uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	EventType    enums.OutboxEventType `gorm:"column:event_type;not null"`
	ReadAt       *time.Time            `gorm:"column:read_at"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
