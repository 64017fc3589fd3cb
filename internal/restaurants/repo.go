package restaurants

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/pagination"
)

// Repository defines persistence operations for restaurants and their members.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, restaurant *models.Restaurant) (*models.Restaurant, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Restaurant, error)
	List(ctx context.Context, params pagination.Params) ([]models.Restaurant, bool, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddMember(ctx context.Context, member *models.RestaurantMember) error
	RemoveMember(ctx context.Context, restaurantID, accountID uuid.UUID) error
	ListMembers(ctx context.Context, restaurantID uuid.UUID) ([]models.RestaurantMember, error)
	ListForAccount(ctx context.Context, accountID uuid.UUID) ([]models.Restaurant, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a restaurants repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, restaurant *models.Restaurant) (*models.Restaurant, error) {
	if err := r.db.WithContext(ctx).Create(restaurant).Error; err != nil {
		return nil, err
	}
	return restaurant, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&restaurant).Error
	if err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Restaurant, bool, error) {
	query := r.db.WithContext(ctx).
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

	var rows []models.Restaurant
	if err := query.Find(&rows).Error; err != nil {
		return nil, false, err
	}
	rows, hasMore := pagination.TrimPage(rows, params.Limit)
	return rows, hasMore, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Restaurant{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Restaurant{}).Error
}

func (r *repository) AddMember(ctx context.Context, member *models.RestaurantMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repository) RemoveMember(ctx context.Context, restaurantID, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("restaurant_id = ? AND account_id = ?", restaurantID, accountID).
		Delete(&models.RestaurantMember{}).Error
}

func (r *repository) ListMembers(ctx context.Context, restaurantID uuid.UUID) ([]models.RestaurantMember, error) {
	var members []models.RestaurantMember
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *repository) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]models.Restaurant, error) {
	var restaurants []models.Restaurant
	err := r.db.WithContext(ctx).
		Joins("JOIN restaurant_members ON restaurant_members.restaurant_id = restaurants.id").
		Where("restaurant_members.account_id = ?", accountID).
		Order("restaurants.created_at ASC").
		Find(&restaurants).Error
	return restaurants, err
}
