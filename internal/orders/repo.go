package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
	"github.com/forkline/forkline-backend/pkg/pagination"
)

// ListFilters narrows order listings.
type ListFilters struct {
	Status *enums.OrderStatus
}

// Repository defines persistence operations for orders and the
// idempotency key registry that guards their creation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByCartID(ctx context.Context, cartID uuid.UUID) (*models.Order, error)
	ListForRestaurant(ctx context.Context, restaurantID uuid.UUID, filters ListFilters, params pagination.Params) ([]models.Order, bool, error)
	ListForSupplier(ctx context.Context, supplierID uuid.UUID, filters ListFilters, params pagination.Params) ([]models.Order, bool, error)

	// TransitionStatus applies a compare-and-swap on the status column.
	// It reports false when the order was not in the expected from state,
	// which callers surface as a state machine conflict.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error)

	CreateIdempotencyKey(ctx context.Context, key *models.IdempotencyKey) error
	FindIdempotencyKey(ctx context.Context, key string) (*models.IdempotencyKey, error)
	CompleteIdempotencyKey(ctx context.Context, id, orderID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByCartID(ctx context.Context, cartID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListForRestaurant(ctx context.Context, restaurantID uuid.UUID, filters ListFilters, params pagination.Params) ([]models.Order, bool, error) {
	query := r.db.WithContext(ctx).Where("buyer_restaurant_id = ?", restaurantID)
	return r.list(query, filters, params)
}

func (r *repository) ListForSupplier(ctx context.Context, supplierID uuid.UUID, filters ListFilters, params pagination.Params) ([]models.Order, bool, error) {
	query := r.db.WithContext(ctx).Where("supplier_id = ?", supplierID)
	return r.list(query, filters, params)
}

func (r *repository) list(query *gorm.DB, filters ListFilters, params pagination.Params) ([]models.Order, bool, error) {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	query = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

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

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, false, err
	}
	rows, hasMore := pagination.TrimPage(rows, params.Limit)
	return rows, hasMore, nil
}

func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for column, value := range updates {
		values[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) CreateIdempotencyKey(ctx context.Context, key *models.IdempotencyKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

func (r *repository) FindIdempotencyKey(ctx context.Context, key string) (*models.IdempotencyKey, error) {
	var row models.IdempotencyKey
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) CompleteIdempotencyKey(ctx context.Context, id, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.IdempotencyKey{}).
		Where("id = ?", id).
		Update("order_id", orderID).Error
}
