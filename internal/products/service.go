package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/internal/ownership"
	pkgdb "github.com/forkline/forkline-backend/pkg/db"
	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
	"github.com/forkline/forkline-backend/pkg/pagination"
)

var maxTaxRate = decimal.NewFromInt(100)

// Service defines catalog management operations.
type Service interface {
	Create(ctx context.Context, actor ownership.Actor, req CreateRequest) (*ProductDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Search(ctx context.Context, params pagination.Params, filters SearchFilters) (*ListResponse, error)
	Update(ctx context.Context, actor ownership.Actor, id uuid.UUID, req UpdateRequest) (*ProductDTO, error)
	Delete(ctx context.Context, actor ownership.Actor, id uuid.UUID) error
}

type service struct {
	repo      Repository
	ownership ownership.Checker
}

// NewService builds a products service with the required dependencies.
func NewService(repo Repository, checker ownership.Checker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if checker == nil {
		return nil, fmt.Errorf("ownership checker required")
	}
	return &service{repo: repo, ownership: checker}, nil
}

func (s *service) Create(ctx context.Context, actor ownership.Actor, req CreateRequest) (*ProductDTO, error) {
	if err := s.ownership.RequireSupplierMember(ctx, actor, req.SupplierID); err != nil {
		return nil, err
	}
	if err := validateListing(req.Name, req.SKU, req.Unit, req.PriceCents, req.TaxRate, req.StockQty); err != nil {
		return nil, err
	}

	availability := req.Availability
	if availability == "" {
		availability = enums.AvailabilityStatusAvailable
	}
	if !availability.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid availability status")
	}

	product := &models.Product{
		SupplierID:   req.SupplierID,
		Name:         strings.TrimSpace(req.Name),
		SKU:          strings.TrimSpace(req.SKU),
		Unit:         strings.TrimSpace(req.Unit),
		PriceCents:   req.PriceCents,
		TaxRate:      req.TaxRate,
		StockQty:     req.StockQty,
		Availability: availability,
		Tags:         req.Tags,
		Active:       true,
	}
	if _, err := s.repo.Create(ctx, product); err != nil {
		if pkgdb.IsUniqueViolation(err, "uq_products_sku") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return toProductDTO(product), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return toProductDTO(product), nil
}

func (s *service) Search(ctx context.Context, params pagination.Params, filters SearchFilters) (*ListResponse, error) {
	rows, hasMore, err := s.repo.Search(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search products")
	}
	resp := &ListResponse{Products: make([]ProductDTO, 0, len(rows))}
	for i := range rows {
		resp.Products = append(resp.Products, *toProductDTO(&rows[i]))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		resp.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return resp, nil
}

func (s *service) Update(ctx context.Context, actor ownership.Actor, id uuid.UUID, req UpdateRequest) (*ProductDTO, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ownership.RequireSupplierMember(ctx, actor, product.SupplierID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Unit != nil {
		updates["unit"] = strings.TrimSpace(*req.Unit)
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		updates["price_cents"] = *req.PriceCents
	}
	if req.TaxRate != nil {
		if req.TaxRate.IsNegative() || req.TaxRate.GreaterThan(maxTaxRate) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax rate must be between 0 and 100")
		}
		updates["tax_rate"] = *req.TaxRate
	}
	if req.StockQty != nil {
		if *req.StockQty < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		updates["stock_qty"] = *req.StockQty
	}
	if req.Availability != nil {
		if !req.Availability.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid availability status")
		}
		updates["availability"] = *req.Availability
	}
	if req.Tags != nil {
		updates["tags"] = pq.StringArray(*req.Tags)
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		return product, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, actor ownership.Actor, id uuid.UUID) error {
	product, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ownership.RequireSupplierMember(ctx, actor, product.SupplierID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
	}
	return nil
}

func validateListing(name, sku, unit string, priceCents int64, taxRate decimal.Decimal, stockQty int64) error {
	if strings.TrimSpace(name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(sku) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if strings.TrimSpace(unit) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit is required")
	}
	if priceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(maxTaxRate) {
		return pkgerrors.New(pkgerrors.CodeValidation, "tax rate must be between 0 and 100")
	}
	if stockQty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	return nil
}
