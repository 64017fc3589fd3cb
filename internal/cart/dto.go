package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
)

// CreateRequest opens a new cart for a restaurant.
type CreateRequest struct {
	RestaurantID uuid.UUID `json:"restaurant_id" validate:"required"`
}

// AddItemRequest adds a product to an open cart.
type AddItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Qty       decimal.Decimal `json:"qty" validate:"required"`
}

// UpdateItemRequest changes the quantity of an existing line.
type UpdateItemRequest struct {
	Qty decimal.Decimal `json:"qty" validate:"required"`
}

// ItemDTO is the public shape of a cart line.
type ItemDTO struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      uuid.UUID       `json:"product_id"`
	Qty            decimal.Decimal `json:"qty"`
	UnitPriceCents int64           `json:"unit_price_cents"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
}

// CartDTO is the public shape of a cart with its lines.
type CartDTO struct {
	ID           uuid.UUID        `json:"id"`
	RestaurantID uuid.UUID        `json:"restaurant_id"`
	Status       enums.CartStatus `json:"status"`
	Items        []ItemDTO        `json:"items"`
	CreatedAt    time.Time        `json:"created_at"`
}

func toCartDTO(cart *models.Cart) *CartDTO {
	if cart == nil {
		return nil
	}
	dto := &CartDTO{
		ID:           cart.ID,
		RestaurantID: cart.RestaurantID,
		Status:       cart.Status,
		Items:        make([]ItemDTO, 0, len(cart.Items)),
		CreatedAt:    cart.CreatedAt,
	}
	for _, item := range cart.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			TaxRate:        item.TaxRate,
		})
	}
	return dto
}
