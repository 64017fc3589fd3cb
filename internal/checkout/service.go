package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/internal/cart"
	"github.com/forkline/forkline-backend/internal/notifications"
	"github.com/forkline/forkline-backend/internal/orders"
	"github.com/forkline/forkline-backend/internal/ownership"
	"github.com/forkline/forkline-backend/internal/products"
	pkgdb "github.com/forkline/forkline-backend/pkg/db"
	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
	"github.com/forkline/forkline-backend/pkg/metrics"
	"github.com/forkline/forkline-backend/pkg/money"
)

const (
	outcomeCompleted = "completed"
	outcomeRejected  = "rejected"
	outcomeReplayed  = "replayed"

	reasonInventory   = "insufficient_inventory"
	reasonIdempotency = "idempotency_conflict"
	reasonConflict    = "conflict"
	reasonValidation  = "validation"
)

// errKeyTaken aborts the transaction when another request inserted the
// same idempotency key first. The caller resolves replay vs in-flight
// outside the failed transaction.
var errKeyTaken = errors.New("idempotency key taken")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Request is the checkout payload. The idempotency key comes from the
// Idempotency-Key request header.
type Request struct {
	CartID         uuid.UUID
	IdempotencyKey string
	PaymentMethod  enums.PaymentMethod
}

// Service converts an open cart into an order.
type Service interface {
	Checkout(ctx context.Context, actor ownership.Actor, req Request) (*orders.OrderDTO, error)
}

type service struct {
	carts     cart.Repository
	products  products.Repository
	orders    orders.Repository
	tx        txRunner
	ownership ownership.Checker
	emitter   notifications.Emitter
	metrics   *metrics.CheckoutMetrics
	now       func() time.Time
}

// NewService builds the checkout service.
func NewService(
	carts cart.Repository,
	productRepo products.Repository,
	orderRepo orders.Repository,
	tx txRunner,
	checker ownership.Checker,
	emitter notifications.Emitter,
	checkoutMetrics *metrics.CheckoutMetrics,
) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
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
	if checkoutMetrics == nil {
		checkoutMetrics = metrics.NewCheckoutMetrics(nil)
	}
	return &service{
		carts:     carts,
		products:  productRepo,
		orders:    orderRepo,
		tx:        tx,
		ownership: checker,
		emitter:   emitter,
		metrics:   checkoutMetrics,
		now:       time.Now,
	}, nil
}

// Checkout runs the conversion in one transaction: the cart row is
// locked first, then each product row in line order, so concurrent
// checkouts against the same inventory serialize instead of overselling.
func (s *service) Checkout(ctx context.Context, actor ownership.Actor, req Request) (*orders.OrderDTO, error) {
	started := s.now()
	dto, outcome, err := s.checkout(ctx, actor, req)
	s.metrics.ObserveDuration(outcome, s.now().Sub(started))
	if err != nil {
		s.metrics.IncRejected(rejectionReason(err))
		return nil, err
	}
	if outcome == outcomeCompleted {
		s.metrics.IncCompleted(string(dto.PaymentMethod))
	}
	return dto, nil
}

func (s *service) checkout(ctx context.Context, actor ownership.Actor, req Request) (*orders.OrderDTO, string, error) {
	if req.CartID == uuid.Nil {
		return nil, outcomeRejected, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		return nil, outcomeRejected, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key required")
	}
	method := req.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodMock
	}
	if !method.IsValid() {
		return nil, outcomeRejected, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	cartRow, err := s.carts.FindByID(ctx, req.CartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, outcomeRejected, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, outcomeRejected, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if err := s.ownership.RequireRestaurantMember(ctx, actor, cartRow.RestaurantID); err != nil {
		return nil, outcomeRejected, err
	}

	// Fast path: a settled key replays its order without touching the
	// cart or inventory.
	if dto, replayed, err := s.resolveKey(ctx, actor, key); err != nil {
		return nil, outcomeRejected, err
	} else if replayed {
		return dto, outcomeReplayed, nil
	}

	var order *models.Order
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		productRepo := s.products.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		keyRow := &models.IdempotencyKey{Key: key}
		if err := orderRepo.CreateIdempotencyKey(ctx, keyRow); err != nil {
			if pkgdb.IsUniqueViolation(err, "uq_idempotency_keys_key") {
				return errKeyTaken
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register idempotency key")
		}

		locked, err := cartRepo.LockByID(ctx, cartRow.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock cart")
		}
		if locked.Status != enums.CartStatusOpen {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart has already been converted")
		}

		items, err := cartRepo.ListItemsForUpdate(ctx, locked.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart items")
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "cart is empty")
		}

		supplierID, err := s.reserveStock(ctx, productRepo, items)
		if err != nil {
			return err
		}

		totalCents, taxCents := priceItems(items)
		order = &models.Order{
			CartID:             locked.ID,
			BuyerRestaurantID:  locked.RestaurantID,
			SupplierID:         supplierID,
			CreatedByAccountID: actor.AccountID,
			Status:             enums.OrderStatusPlaced,
			TotalCents:         totalCents,
			TaxCents:           taxCents,
			PaymentMethod:      method,
		}
		if _, err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if err := orderRepo.CompleteIdempotencyKey(ctx, keyRow.ID, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle idempotency key")
		}
		if err := cartRepo.MarkConverted(ctx, locked.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "convert cart")
		}
		return s.emitter.Emit(ctx, tx, enums.EventOrderPlaced, order)
	})
	if txErr != nil {
		if errors.Is(txErr, errKeyTaken) {
			// Lost the insert race. The winner either settled the key
			// (replay its order) or is still in flight.
			dto, replayed, err := s.resolveKey(ctx, actor, key)
			if err != nil {
				return nil, outcomeRejected, err
			}
			if replayed {
				return dto, outcomeReplayed, nil
			}
			return nil, outcomeRejected, pkgerrors.New(pkgerrors.CodeIdempotency, "checkout with this key is already in progress")
		}
		return nil, outcomeRejected, txErr
	}

	dto, err := s.fetchOrder(ctx, order.ID)
	if err != nil {
		return nil, outcomeRejected, err
	}
	return dto, outcomeCompleted, nil
}

// reserveStock locks each product in stable line order, verifies the
// quantity fits the remaining stock, and writes the decrement. It also
// enforces that every line belongs to the same supplier.
func (s *service) reserveStock(ctx context.Context, productRepo products.Repository, items []models.CartItem) (uuid.UUID, error) {
	var supplierID uuid.UUID
	for _, item := range items {
		product, err := productRepo.LockByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return uuid.Nil, pkgerrors.New(pkgerrors.CodeConflict, "a product in the cart no longer exists")
			}
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock product")
		}
		if !product.Active || product.Availability == enums.AvailabilityStatusUnavailable {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("product %s is no longer orderable", product.ID))
		}
		if supplierID == uuid.Nil {
			supplierID = product.SupplierID
		} else if supplierID != product.SupplierID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "cart mixes products from multiple suppliers")
		}

		remaining := decimal.NewFromInt(product.StockQty).Sub(item.Qty)
		if remaining.IsNegative() {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeInventory,
				fmt.Sprintf("insufficient stock for product %s", product.ID))
		}
		if err := productRepo.SetStock(ctx, product.ID, remaining.Round(0).IntPart()); err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve stock")
		}
	}
	return supplierID, nil
}

// resolveKey reports whether the key already maps to a settled order.
// An unsettled key is reported as not replayed; the caller decides how
// to treat it.
func (s *service) resolveKey(ctx context.Context, actor ownership.Actor, key string) (*orders.OrderDTO, bool, error) {
	keyRow, err := s.orders.FindIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "look up idempotency key")
	}
	if keyRow.OrderID == nil {
		return nil, false, nil
	}

	order, err := s.orders.FindByID(ctx, *keyRow.OrderID)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load replayed order")
	}
	if err := s.ownership.RequireRestaurantMember(ctx, actor, order.BuyerRestaurantID); err != nil {
		return nil, false, err
	}
	dto, err := s.fetchOrder(ctx, order.ID)
	if err != nil {
		return nil, false, err
	}
	return dto, true, nil
}

func (s *service) fetchOrder(ctx context.Context, id uuid.UUID) (*orders.OrderDTO, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return orders.ToDTO(order), nil
}

func priceItems(items []models.CartItem) (totalCents, taxCents int64) {
	lines := make([]money.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, money.Line{
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			TaxRate:        item.TaxRate,
		})
	}
	return money.Totals(lines)
}

func rejectionReason(err error) string {
	switch {
	case pkgerrors.HasCode(err, pkgerrors.CodeInventory):
		return reasonInventory
	case pkgerrors.HasCode(err, pkgerrors.CodeIdempotency):
		return reasonIdempotency
	case pkgerrors.HasCode(err, pkgerrors.CodeConflict):
		return reasonConflict
	case pkgerrors.HasCode(err, pkgerrors.CodeValidation):
		return reasonValidation
	default:
		return "error"
	}
}
