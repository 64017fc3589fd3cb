package ownership

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
)

// Actor is the authenticated identity performing a request.
type Actor struct {
	AccountID uuid.UUID
	Role      enums.AccountRole
}

// Checker answers "may this actor act for this organization". Platform
// admins pass every check; everyone else needs a membership row.
type Checker interface {
	WithTx(tx *gorm.DB) Checker
	RestaurantRole(ctx context.Context, accountID, restaurantID uuid.UUID) (enums.MemberRole, bool, error)
	SupplierRole(ctx context.Context, accountID, supplierID uuid.UUID) (enums.MemberRole, bool, error)
	RequireRestaurantMember(ctx context.Context, actor Actor, restaurantID uuid.UUID) error
	RequireSupplierMember(ctx context.Context, actor Actor, supplierID uuid.UUID) error
	RequireRestaurantOwner(ctx context.Context, actor Actor, restaurantID uuid.UUID) error
	RequireSupplierOwner(ctx context.Context, actor Actor, supplierID uuid.UUID) error
}

type checker struct {
	db *gorm.DB
}

// NewChecker builds a membership checker bound to the provided DB.
func NewChecker(db *gorm.DB) (Checker, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &checker{db: db}, nil
}

func (c *checker) WithTx(tx *gorm.DB) Checker {
	if tx == nil {
		return c
	}
	return &checker{db: tx}
}

func (c *checker) RestaurantRole(ctx context.Context, accountID, restaurantID uuid.UUID) (enums.MemberRole, bool, error) {
	var member models.RestaurantMember
	err := c.db.WithContext(ctx).
		Where("restaurant_id = ? AND account_id = ?", restaurantID, accountID).
		First(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	return member.Role, true, nil
}

func (c *checker) SupplierRole(ctx context.Context, accountID, supplierID uuid.UUID) (enums.MemberRole, bool, error) {
	var member models.SupplierMember
	err := c.db.WithContext(ctx).
		Where("supplier_id = ? AND account_id = ?", supplierID, accountID).
		First(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	return member.Role, true, nil
}

func (c *checker) RequireRestaurantMember(ctx context.Context, actor Actor, restaurantID uuid.UUID) error {
	return c.requireRestaurant(ctx, actor, restaurantID, false)
}

func (c *checker) RequireRestaurantOwner(ctx context.Context, actor Actor, restaurantID uuid.UUID) error {
	return c.requireRestaurant(ctx, actor, restaurantID, true)
}

func (c *checker) RequireSupplierMember(ctx context.Context, actor Actor, supplierID uuid.UUID) error {
	return c.requireSupplier(ctx, actor, supplierID, false)
}

func (c *checker) RequireSupplierOwner(ctx context.Context, actor Actor, supplierID uuid.UUID) error {
	return c.requireSupplier(ctx, actor, supplierID, true)
}

func (c *checker) requireRestaurant(ctx context.Context, actor Actor, restaurantID uuid.UUID, ownerOnly bool) error {
	if err := validateActor(actor); err != nil {
		return err
	}
	if restaurantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	if actor.Role == enums.AccountRoleAdmin {
		return nil
	}
	role, ok, err := c.RestaurantRole(ctx, actor.AccountID, restaurantID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load restaurant membership")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this restaurant")
	}
	if ownerOnly && role != enums.MemberRoleOwner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "owner role required")
	}
	return nil
}

func (c *checker) requireSupplier(ctx context.Context, actor Actor, supplierID uuid.UUID, ownerOnly bool) error {
	if err := validateActor(actor); err != nil {
		return err
	}
	if supplierID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	if actor.Role == enums.AccountRoleAdmin {
		return nil
	}
	role, ok, err := c.SupplierRole(ctx, actor.AccountID, supplierID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier membership")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this supplier")
	}
	if ownerOnly && role != enums.MemberRoleOwner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "owner role required")
	}
	return nil
}

func validateActor(actor Actor) error {
	if actor.AccountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "account role missing")
	}
	return nil
}
