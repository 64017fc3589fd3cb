package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/forkline/forkline-backend/pkg/db"
	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
	"github.com/forkline/forkline-backend/pkg/pagination"
)

// SearchFilters narrows product listings.
type SearchFilters struct {
	SupplierID   *uuid.UUID
	Query        string
	Availability *enums.AvailabilityStatus
	Tag          string
	ActiveOnly   bool
}

// Repository defines persistence operations for products.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// FindAnyByID includes soft-deleted rows. Billing documents refer
	// to products that may have been retired since purchase.
	FindAnyByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Search(ctx context.Context, params pagination.Params, filters SearchFilters) ([]models.Product, bool, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error

	// LockByID reads the product under FOR UPDATE so stock mutations
	// serialize across concurrent checkouts.
	LockByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	SetStock(ctx context.Context, id uuid.UUID, stockQty int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a products repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindAnyByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Unscoped().
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) Search(ctx context.Context, params pagination.Params, filters SearchFilters) ([]models.Product, bool, error) {
	query := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	if filters.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filters.SupplierID)
	}
	if term := strings.TrimSpace(filters.Query); term != "" {
		// ILIKE rides the gin_trgm_ops index on name. sqlite has no
		// ILIKE, but its LIKE is already case-insensitive.
		if r.db.Dialector.Name() == "sqlite" {
			query = query.Where("name LIKE ?", "%"+term+"%")
		} else {
			query = query.Where("name ILIKE ?", "%"+term+"%")
		}
	}
	if filters.Availability != nil {
		query = query.Where("availability = ?", *filters.Availability)
	}
	if tag := strings.TrimSpace(filters.Tag); tag != "" {
		query = query.Where("? = ANY(tags)", tag)
	}
	if filters.ActiveOnly {
		query = query.Where("active = ?", true)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, false, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Product
	if err := query.Find(&rows).Error; err != nil {
		return nil, false, err
	}
	rows, hasMore := pagination.TrimPage(rows, params.Limit)
	return rows, hasMore, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Product{}).Error
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := pkgdb.LockForUpdate(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) SetStock(ctx context.Context, id uuid.UUID, stockQty int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock_qty", stockQty).Error
}
