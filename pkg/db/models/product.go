package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/enums"
)

// Product is a supplier listing. Price is stored in integer minor units;
// the tax rate is a 0-100 percentage with two-decimal precision. StockQty
// is mutated only by checkout and cancellation, under a row lock.
type Product struct {
	ID           uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	SupplierID   uuid.UUID                `gorm:"column:supplier_id;type:uuid;not null;index"`
	Name         string                   `gorm:"column:name;not null;index"`
	SKU          string                   `gorm:"column:sku;not null;uniqueIndex:uq_products_sku"`
	Unit         string                   `gorm:"column:unit;not null"`
	PriceCents   int64                    `gorm:"column:price_cents;not null"`
	TaxRate      decimal.Decimal          `gorm:"column:tax_rate;type:numeric(5,2);not null"`
	StockQty     int64                    `gorm:"column:stock_qty;not null;default:0"`
	Availability enums.AvailabilityStatus `gorm:"column:availability;not null;default:'available'"`
	Tags         pq.StringArray           `gorm:"column:tags;type:text[]"`
	Active       bool                     `gorm:"column:active;not null;default:true;index"`
	CreatedAt    time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time                `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt           `gorm:"column:deleted_at;index"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
