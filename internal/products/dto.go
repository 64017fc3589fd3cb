package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
)

// CreateRequest contains the payload for listing a new product.
type CreateRequest struct {
	SupplierID   uuid.UUID                `json:"supplier_id" validate:"required"`
	Name         string                   `json:"name" validate:"required"`
	SKU          string                   `json:"sku" validate:"required"`
	Unit         string                   `json:"unit" validate:"required"`
	PriceCents   int64                    `json:"price_cents" validate:"gte=0"`
	TaxRate      decimal.Decimal          `json:"tax_rate"`
	StockQty     int64                    `json:"stock_qty" validate:"gte=0"`
	Availability enums.AvailabilityStatus `json:"availability"`
	Tags         []string                 `json:"tags,omitempty"`
}

// UpdateRequest carries optional field updates for a product.
type UpdateRequest struct {
	Name         *string                   `json:"name,omitempty" validate:"omitempty,min=1"`
	Unit         *string                   `json:"unit,omitempty" validate:"omitempty,min=1"`
	PriceCents   *int64                    `json:"price_cents,omitempty" validate:"omitempty,gte=0"`
	TaxRate      *decimal.Decimal          `json:"tax_rate,omitempty"`
	StockQty     *int64                    `json:"stock_qty,omitempty" validate:"omitempty,gte=0"`
	Availability *enums.AvailabilityStatus `json:"availability,omitempty"`
	Tags         *[]string                 `json:"tags,omitempty"`
	Active       *bool                     `json:"active,omitempty"`
}

// ProductDTO is the public shape of a product.
type ProductDTO struct {
	ID           uuid.UUID                `json:"id"`
	SupplierID   uuid.UUID                `json:"supplier_id"`
	Name         string                   `json:"name"`
	SKU          string                   `json:"sku"`
	Unit         string                   `json:"unit"`
	PriceCents   int64                    `json:"price_cents"`
	TaxRate      decimal.Decimal          `json:"tax_rate"`
	StockQty     int64                    `json:"stock_qty"`
	Availability enums.AvailabilityStatus `json:"availability"`
	Tags         []string                 `json:"tags,omitempty"`
	Active       bool                     `json:"active"`
	CreatedAt    time.Time                `json:"created_at"`
}

// ListResponse is a cursor page of products.
type ListResponse struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func toProductDTO(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}
	return &ProductDTO{
		ID:           product.ID,
		SupplierID:   product.SupplierID,
		Name:         product.Name,
		SKU:          product.SKU,
		Unit:         product.Unit,
		PriceCents:   product.PriceCents,
		TaxRate:      product.TaxRate,
		StockQty:     product.StockQty,
		Availability: product.Availability,
		Tags:         product.Tags,
		Active:       product.Active,
		CreatedAt:    product.CreatedAt,
	}
}
