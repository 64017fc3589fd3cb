package orders

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
)

// OrderDTO is the public shape of an order.
type OrderDTO struct {
	ID            uuid.UUID           `json:"id"`
	CartID        uuid.UUID           `json:"cart_id"`
	RestaurantID  uuid.UUID           `json:"restaurant_id"`
	SupplierID    uuid.UUID           `json:"supplier_id"`
	Status        enums.OrderStatus   `json:"status"`
	TotalCents    int64               `json:"total_cents"`
	TaxCents      int64               `json:"tax_cents"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	DeliveredAt   *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// ListResponse is a cursor page of orders.
type ListResponse struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// DocumentLine is one priced line on a receipt or invoice, rebuilt from
// the cart item snapshots the order was priced from.
type DocumentLine struct {
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Unit          string          `json:"unit"`
	Qty           decimal.Decimal `json:"qty"`
	UnitPrice     int64           `json:"unit_price_cents"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	SubtotalCents int64           `json:"subtotal_cents"`
	TaxCents      int64           `json:"tax_cents"`
	TotalCents    int64           `json:"total_cents"`
}

// ReceiptDTO is the buyer-facing record of a completed purchase.
type ReceiptDTO struct {
	OrderID       uuid.UUID           `json:"order_id"`
	RestaurantID  uuid.UUID           `json:"restaurant_id"`
	SupplierID    uuid.UUID           `json:"supplier_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Lines         []DocumentLine      `json:"lines"`
	SubtotalCents int64               `json:"subtotal_cents"`
	TaxCents      int64               `json:"tax_cents"`
	TotalCents    int64               `json:"total_cents"`
	IssuedAt      time.Time           `json:"issued_at"`
}

// InvoiceDTO is the supplier-issued billing document for an order.
type InvoiceDTO struct {
	InvoiceNumber string         `json:"invoice_number"`
	OrderID       uuid.UUID      `json:"order_id"`
	RestaurantID  uuid.UUID      `json:"restaurant_id"`
	SupplierID    uuid.UUID      `json:"supplier_id"`
	Lines         []DocumentLine `json:"lines"`
	SubtotalCents int64          `json:"subtotal_cents"`
	TaxCents      int64          `json:"tax_cents"`
	TotalCents    int64          `json:"total_cents"`
	IssuedAt      time.Time      `json:"issued_at"`
	DueAt         time.Time      `json:"due_at"`
}

// ToDTO converts a persisted order to its public shape.
func ToDTO(order *models.Order) *OrderDTO {
	return toOrderDTO(order)
}

func toOrderDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	return &OrderDTO{
		ID:            order.ID,
		CartID:        order.CartID,
		RestaurantID:  order.BuyerRestaurantID,
		SupplierID:    order.SupplierID,
		Status:        order.Status,
		TotalCents:    order.TotalCents,
		TaxCents:      order.TaxCents,
		PaymentMethod: order.PaymentMethod,
		PaidAt:        order.PaidAt,
		DeliveredAt:   order.DeliveredAt,
		CancelledAt:   order.CancelledAt,
		CreatedAt:     order.CreatedAt,
	}
}

// invoiceNumber derives a stable human-readable reference from the
// order identity. The same order always yields the same number.
func invoiceNumber(order *models.Order) string {
	short := order.ID.String()[:8]
	return fmt.Sprintf("INV-%s-%s", order.CreatedAt.UTC().Format("20060102"), short)
}
