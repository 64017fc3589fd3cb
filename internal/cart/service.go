package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/internal/ownership"
	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
)

const cartClosedMessage = "cart is no longer open"

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service defines cart operations up to, but not including, checkout.
type Service interface {
	Create(ctx context.Context, actor ownership.Actor, req CreateRequest) (*CartDTO, error)
	Get(ctx context.Context, actor ownership.Actor, cartID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, actor ownership.Actor, cartID uuid.UUID, req AddItemRequest) (*CartDTO, error)
	UpdateItem(ctx context.Context, actor ownership.Actor, cartID, itemID uuid.UUID, req UpdateItemRequest) (*CartDTO, error)
	RemoveItem(ctx context.Context, actor ownership.Actor, cartID, itemID uuid.UUID) (*CartDTO, error)
}

type service struct {
	repo      Repository
	products  productLoader
	ownership ownership.Checker
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, products productLoader, checker ownership.Checker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if checker == nil {
		return nil, fmt.Errorf("ownership checker required")
	}
	return &service{repo: repo, products: products, ownership: checker}, nil
}

func (s *service) Create(ctx context.Context, actor ownership.Actor, req CreateRequest) (*CartDTO, error) {
	if err := s.ownership.RequireRestaurantMember(ctx, actor, req.RestaurantID); err != nil {
		return nil, err
	}
	cart := &models.Cart{
		RestaurantID:       req.RestaurantID,
		CreatedByAccountID: actor.AccountID,
		Status:             enums.CartStatusOpen,
	}
	if _, err := s.repo.Create(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
	}
	return toCartDTO(cart), nil
}

func (s *service) Get(ctx context.Context, actor ownership.Actor, cartID uuid.UUID) (*CartDTO, error) {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := s.ownership.RequireRestaurantMember(ctx, actor, cart.RestaurantID); err != nil {
		return nil, err
	}
	return toCartDTO(cart), nil
}

// AddItem snapshots the product's current price and tax rate onto the
// line. Re-adding a product replaces its quantity.
func (s *service) AddItem(ctx context.Context, actor ownership.Actor, cartID uuid.UUID, req AddItemRequest) (*CartDTO, error) {
	cart, err := s.loadOpenCart(ctx, actor, cartID)
	if err != nil {
		return nil, err
	}
	if req.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if !req.Qty.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}

	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.Active || product.Availability == enums.AvailabilityStatusUnavailable {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product is not orderable")
	}

	existing, err := s.repo.FindItem(ctx, cart.ID, product.ID)
	switch {
	case err == nil:
		updates := map[string]any{
			"qty":              req.Qty,
			"unit_price_cents": product.PriceCents,
			"tax_rate":         product.TaxRate,
		}
		if err := s.repo.UpdateItem(ctx, existing.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item := &models.CartItem{
			CartID:         cart.ID,
			ProductID:      product.ID,
			Qty:            req.Qty,
			UnitPriceCents: product.PriceCents,
			TaxRate:        product.TaxRate,
		}
		if err := s.repo.AddItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find cart item")
	}

	return s.Get(ctx, actor, cart.ID)
}

func (s *service) UpdateItem(ctx context.Context, actor ownership.Actor, cartID, itemID uuid.UUID, req UpdateItemRequest) (*CartDTO, error) {
	cart, err := s.loadOpenCart(ctx, actor, cartID)
	if err != nil {
		return nil, err
	}
	if !req.Qty.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}

	item, err := s.findCartItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateItem(ctx, item.ID, map[string]any{"qty": req.Qty}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
	}
	return s.Get(ctx, actor, cart.ID)
}

func (s *service) RemoveItem(ctx context.Context, actor ownership.Actor, cartID, itemID uuid.UUID) (*CartDTO, error) {
	cart, err := s.loadOpenCart(ctx, actor, cartID)
	if err != nil {
		return nil, err
	}
	item, err := s.findCartItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveItem(ctx, item.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	return s.Get(ctx, actor, cart.ID)
}

func (s *service) loadCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return cart, nil
}

func (s *service) loadOpenCart(ctx context.Context, actor ownership.Actor, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := s.ownership.RequireRestaurantMember(ctx, actor, cart.RestaurantID); err != nil {
		return nil, err
	}
	if cart.Status != enums.CartStatusOpen {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, cartClosedMessage)
	}
	return cart, nil
}

func (s *service) findCartItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	item, err := s.repo.FindItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
	}
	if item.CartID != cartID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return item, nil
}
