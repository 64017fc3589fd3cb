package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/enums"
)

// Cart accumulates line items for a restaurant before checkout. Once its
// status flips to converted the items are immutable; exactly one order may
// reference a cart (unique constraint on orders.cart_id).
type Cart struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID       uuid.UUID        `gorm:"column:restaurant_id;type:uuid;not null;index:idx_carts_restaurant_status"`
	CreatedByAccountID uuid.UUID        `gorm:"column:created_by_account_id;type:uuid;not null;index"`
	Status             enums.CartStatus `gorm:"column:status;not null;default:'open';index:idx_carts_restaurant_status"`
	Items              []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt          gorm.DeletedAt   `gorm:"column:deleted_at;index"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CartItem snapshots the product's unit price and tax rate at add time.
// Checkout prices the order from these snapshots, never from the live
// product row.
type CartItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CartID         uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Qty            decimal.Decimal `gorm:"column:qty;type:numeric(12,3);not null"`
	UnitPriceCents int64           `gorm:"column:unit_price_cents;not null"`
	TaxRate        decimal.Decimal `gorm:"column:tax_rate;type:numeric(5,2);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt      gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
