package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/enums"
)

// Order is the immutable record produced by converting a cart. Monetary
// fields are integer minor units, total includes tax, and total >= tax >= 0.
// Status moves only through the transitions defined on enums.OrderStatus.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CartID             uuid.UUID           `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:uq_orders_cart"`
	BuyerRestaurantID  uuid.UUID           `gorm:"column:buyer_restaurant_id;type:uuid;not null;index:idx_orders_restaurant_status"`
	SupplierID         uuid.UUID           `gorm:"column:supplier_id;type:uuid;not null;index:idx_orders_supplier_status"`
	CreatedByAccountID uuid.UUID           `gorm:"column:created_by_account_id;type:uuid;not null;index"`
	Status             enums.OrderStatus   `gorm:"column:status;not null;default:'placed';index:idx_orders_restaurant_status;index:idx_orders_supplier_status"`
	TotalCents         int64               `gorm:"column:total_cents;not null"`
	TaxCents           int64               `gorm:"column:tax_cents;not null"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;not null;default:'mock'"`
	PaidAt             *time.Time          `gorm:"column:paid_at"`
	DeliveredAt        *time.Time          `gorm:"column:delivered_at"`
	CancelledAt        *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt          gorm.DeletedAt      `gorm:"column:deleted_at;index"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// IdempotencyKey maps a client-supplied key to at most one order. The row
// is inserted as a placeholder (OrderID nil) inside the checkout
// transaction; the unique index turns concurrent inserts of the same key
// into a database-level conflict.
type IdempotencyKey struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Key       string     `gorm:"column:key;not null;uniqueIndex:uq_idempotency_keys_key"`
	OrderID   *uuid.UUID `gorm:"column:order_id;type:uuid;index"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (k *IdempotencyKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}
