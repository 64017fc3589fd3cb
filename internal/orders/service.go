package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/internal/notifications"
	"github.com/forkline/forkline-backend/internal/ownership"
	"github.com/forkline/forkline-backend/internal/products"
	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
	"github.com/forkline/forkline-backend/pkg/money"
	"github.com/forkline/forkline-backend/pkg/pagination"
)

const invoiceTermsDays = 30

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartItemReader interface {
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
}

// Service exposes the order lifecycle after checkout: reads, status
// transitions, and the billing documents derived from an order.
type Service interface {
	Get(ctx context.Context, actor ownership.Actor, id uuid.UUID) (*OrderDTO, error)
	ListForRestaurant(ctx context.Context, actor ownership.Actor, restaurantID uuid.UUID, filters ListFilters, params pagination.Params) (*ListResponse, error)
	ListForSupplier(ctx context.Context, actor ownership.Actor, supplierID uuid.UUID, filters ListFilters, params pagination.Params) (*ListResponse, error)

	Confirm(ctx context.Context, actor ownership.Actor, id uuid.UUID) (*OrderDTO, error)
	Deliver(ctx context.Context, actor ownership.Actor, id uuid.UUID) (*OrderDTO, error)
	Cancel(ctx context.Context, actor ownership.Actor, id uuid.UUID) (*OrderDTO, error)

	Receipt(ctx context.Context, actor ownership.Actor, id uuid.UUID) (*ReceiptDTO, error)
	Invoice(ctx context.Context, actor ownership.Actor, id uuid.UUID) (*InvoiceDTO, error)
}

type service struct {
	repo      Repository
	carts     cartItemReader
	products  products.Repository
	tx        txRunner
	ownership ownership.Checker
	emitter   notifications.Emitter
	now       func() time.Time
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, carts cartItemReader, productRepo products.Repository, tx txRunner, checker ownership.Checker, emitter notifications.Emitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart item reader required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if checker == nil {
		return nil, fmt.Errorf("ownership checker required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		repo:      repo,
		carts:     carts,
		products:  productRepo,
		tx:        tx,
		ownership: checker,
		emitter:   emitter,
		now:       time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, actor ownership.Actor, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireParty(ctx, actor, order); err != nil {
		return nil, err
	}
	return toOrderDTO(order), nil
}

func (s *service) ListForRestaurant(ctx context.Context, actor ownership.Actor, restaurantID uuid.UUID, filters ListFilters, params pagination.Params) (*ListResponse, error) {
	if err := s.ownership.RequireRestaurantMember(ctx, actor, restaurantID); err != nil {
		return nil, err
	}
	rows, hasMore, err := s.repo.ListForRestaurant(ctx, restaurantID, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return toListResponse(rows, hasMore), nil
}

func (s *service) ListForSupplier(ctx context.Context, actor ownership.Actor, supplierID uuid.UUID, filters ListFilters, params pagination.Params) (*ListResponse, error) {
	if err := s.ownership.RequireSupplierMember(ctx, actor, supplierID); err != nil {
		return nil, err
	}
	rows, hasMore, err := s.repo.ListForSupplier(ctx, supplierID, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return toListResponse(rows, hasMore), nil
}

// Confirm moves a placed order to confirmed. Only the supplier side may
// confirm.
func (s *service) Confirm(ctx context.Context, actor ownership.Actor, id uuid.UUID) (*OrderDTO, error) {
	return s.transition(ctx, actor, id, enums.OrderStatusConfirmed, enums.EventOrderConfirmed, nil)
}

// Deliver moves a confirmed order to delivered and stamps delivered_at.
func (s *service) Deliver(ctx context.Context, actor ownership.Actor, id uuid.UUID) (*OrderDTO, error) {
	return s.transition(ctx, actor, id, enums.OrderStatusDelivered, enums.EventOrderDelivered, map[string]any{
		"delivered_at": s.now().UTC(),
	})
}

func (s *service) transition(ctx context.Context, actor ownership.Actor, id uuid.UUID, target enums.OrderStatus, eventType enums.OutboxEventType, updates map[string]any) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ownership.RequireSupplierMember(ctx, actor, order.SupplierID); err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("order cannot move from %s to %s", order.Status, target))
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.TransitionStatus(ctx, id, order.Status, target, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "transition order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently")
		}
		snapshot := *order
		snapshot.Status = target
		return s.emitter.Emit(ctx, tx, eventType, &snapshot)
	})
	if err != nil {
		return nil, err
	}
	return s.refetch(ctx, id)
}

// Cancel aborts an order from placed or confirmed and returns the
// reserved stock to the supplier's products. Either party may cancel.
func (s *service) Cancel(ctx context.Context, actor ownership.Actor, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireParty(ctx, actor, order); err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusCancelled) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("order cannot be cancelled from %s", order.Status))
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.TransitionStatus(ctx, id, order.Status, enums.OrderStatusCancelled, map[string]any{
			"cancelled_at": s.now().UTC(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently")
		}

		items, err := s.carts.ListItems(ctx, order.CartID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order lines")
		}
		productRepo := s.products.WithTx(tx)
		for _, item := range items {
			product, err := productRepo.LockByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					// Product retired since purchase; nothing to restock.
					continue
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock product")
			}
			restored := decimal.NewFromInt(product.StockQty).Add(item.Qty).Round(0).IntPart()
			if err := productRepo.SetStock(ctx, product.ID, restored); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore stock")
			}
		}

		snapshot := *order
		snapshot.Status = enums.OrderStatusCancelled
		return s.emitter.Emit(ctx, tx, enums.EventOrderCancelled, &snapshot)
	})
	if err != nil {
		return nil, err
	}
	return s.refetch(ctx, id)
}

// Receipt rebuilds the priced lines from the cart item snapshots the
// order was created from.
func (s *service) Receipt(ctx context.Context, actor ownership.Actor, id uuid.UUID) (*ReceiptDTO, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireParty(ctx, actor, order); err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "no receipt for a cancelled order")
	}

	lines, subtotal, tax, err := s.buildLines(ctx, order)
	if err != nil {
		return nil, err
	}
	return &ReceiptDTO{
		OrderID:       order.ID,
		RestaurantID:  order.BuyerRestaurantID,
		SupplierID:    order.SupplierID,
		PaymentMethod: order.PaymentMethod,
		Lines:         lines,
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TotalCents:    subtotal + tax,
		IssuedAt:      order.CreatedAt,
	}, nil
}

// Invoice is available once the supplier has confirmed the order.
func (s *service) Invoice(ctx context.Context, actor ownership.Actor, id uuid.UUID) (*InvoiceDTO, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireParty(ctx, actor, order); err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusConfirmed && order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice requires a confirmed order")
	}

	lines, subtotal, tax, err := s.buildLines(ctx, order)
	if err != nil {
		return nil, err
	}
	issuedAt := order.CreatedAt
	return &InvoiceDTO{
		InvoiceNumber: invoiceNumber(order),
		OrderID:       order.ID,
		RestaurantID:  order.BuyerRestaurantID,
		SupplierID:    order.SupplierID,
		Lines:         lines,
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TotalCents:    subtotal + tax,
		IssuedAt:      issuedAt,
		DueAt:         issuedAt.AddDate(0, 0, invoiceTermsDays),
	}, nil
}

func (s *service) buildLines(ctx context.Context, order *models.Order) ([]DocumentLine, int64, int64, error) {
	items, err := s.carts.ListItems(ctx, order.CartID)
	if err != nil {
		return nil, 0, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order lines")
	}

	lines := make([]DocumentLine, 0, len(items))
	var subtotalSum, taxSum int64
	for _, item := range items {
		subtotal, tax := money.LineAmounts(money.Line{
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			TaxRate:        item.TaxRate,
		})
		line := DocumentLine{
			ProductID:     item.ProductID,
			Qty:           item.Qty,
			UnitPrice:     item.UnitPriceCents,
			TaxRate:       item.TaxRate,
			SubtotalCents: subtotal,
			TaxCents:      tax,
			TotalCents:    subtotal + tax,
		}
		// Products may have been retired since purchase, so the lookup
		// includes soft-deleted rows.
		if product, err := s.products.FindAnyByID(ctx, item.ProductID); err == nil {
			line.ProductName = product.Name
			line.Unit = product.Unit
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		lines = append(lines, line)
		subtotalSum += subtotal
		taxSum += tax
	}
	return lines, subtotalSum, taxSum, nil
}

func (s *service) loadOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

// requireParty admits members of either side of the order.
func (s *service) requireParty(ctx context.Context, actor ownership.Actor, order *models.Order) error {
	if err := s.ownership.RequireRestaurantMember(ctx, actor, order.BuyerRestaurantID); err == nil {
		return nil
	} else if pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		return err
	}
	return s.ownership.RequireSupplierMember(ctx, actor, order.SupplierID)
}

func (s *service) refetch(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	return toOrderDTO(order), nil
}

func toListResponse(rows []models.Order, hasMore bool) *ListResponse {
	resp := &ListResponse{Orders: make([]OrderDTO, 0, len(rows))}
	for i := range rows {
		resp.Orders = append(resp.Orders, *toOrderDTO(&rows[i]))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		resp.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return resp
}
