package suppliers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/pagination"
)

// Repository defines persistence operations for suppliers and their members.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, supplier *models.Supplier) (*models.Supplier, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	List(ctx context.Context, params pagination.Params) ([]models.Supplier, bool, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddMember(ctx context.Context, member *models.SupplierMember) error
	RemoveMember(ctx context.Context, supplierID, accountID uuid.UUID) error
	ListMembers(ctx context.Context, supplierID uuid.UUID) ([]models.SupplierMember, error)
	ListForAccount(ctx context.Context, accountID uuid.UUID) ([]models.Supplier, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a suppliers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, supplier *models.Supplier) (*models.Supplier, error) {
	if err := r.db.WithContext(ctx).Create(supplier).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&supplier).Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Supplier, bool, error) {
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

	var rows []models.Supplier
	if err := query.Find(&rows).Error; err != nil {
		return nil, false, err
	}
	rows, hasMore := pagination.TrimPage(rows, params.Limit)
	return rows, hasMore, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Supplier{}).Error
}

func (r *repository) AddMember(ctx context.Context, member *models.SupplierMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repository) RemoveMember(ctx context.Context, supplierID, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("supplier_id = ? AND account_id = ?", supplierID, accountID).
		Delete(&models.SupplierMember{}).Error
}

func (r *repository) ListMembers(ctx context.Context, supplierID uuid.UUID) ([]models.SupplierMember, error) {
	var members []models.SupplierMember
	err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *repository) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	err := r.db.WithContext(ctx).
		Joins("JOIN supplier_members ON supplier_members.supplier_id = suppliers.id").
		Where("supplier_members.account_id = ?", accountID).
		Order("suppliers.created_at ASC").
		Find(&suppliers).Error
	return suppliers, err
}
