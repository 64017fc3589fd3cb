package restaurants

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/internal/ownership"
	pkgdb "github.com/forkline/forkline-backend/pkg/db"
	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
	"github.com/forkline/forkline-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines restaurant management operations.
type Service interface {
	Create(ctx context.Context, actor ownership.Actor, req CreateRequest) (*RestaurantDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*RestaurantDTO, error)
	List(ctx context.Context, params pagination.Params) (*ListResponse, error)
	Update(ctx context.Context, actor ownership.Actor, id uuid.UUID, req UpdateRequest) (*RestaurantDTO, error)
	Delete(ctx context.Context, actor ownership.Actor, id uuid.UUID) error
	AddMember(ctx context.Context, actor ownership.Actor, restaurantID uuid.UUID, req AddMemberRequest) error
	RemoveMember(ctx context.Context, actor ownership.Actor, restaurantID, accountID uuid.UUID) error
	ListMembers(ctx context.Context, actor ownership.Actor, restaurantID uuid.UUID) ([]MemberDTO, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	ownership ownership.Checker
}

// NewService builds a restaurant service with the required dependencies.
func NewService(repo Repository, tx txRunner, checker ownership.Checker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("restaurants repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if checker == nil {
		return nil, fmt.Errorf("ownership checker required")
	}
	return &service{repo: repo, tx: tx, ownership: checker}, nil
}

// Create inserts the restaurant and makes the creating account its owner in
// one transaction.
func (s *service) Create(ctx context.Context, actor ownership.Actor, req CreateRequest) (*RestaurantDTO, error) {
	if actor.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	restaurant := &models.Restaurant{
		Name:    name,
		Address: strings.TrimSpace(req.Address),
		Phone:   strings.TrimSpace(req.Phone),
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, restaurant); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create restaurant")
		}
		member := &models.RestaurantMember{
			RestaurantID: restaurant.ID,
			AccountID:    actor.AccountID,
			Role:         enums.MemberRoleOwner,
		}
		if err := repo.AddMember(ctx, member); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add owner membership")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toRestaurantDTO(restaurant), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*RestaurantDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	restaurant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "restaurant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load restaurant")
	}
	return toRestaurantDTO(restaurant), nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ListResponse, error) {
	rows, hasMore, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list restaurants")
	}
	resp := &ListResponse{Restaurants: make([]RestaurantDTO, 0, len(rows))}
	for i := range rows {
		resp.Restaurants = append(resp.Restaurants, *toRestaurantDTO(&rows[i]))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		resp.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return resp, nil
}

func (s *service) Update(ctx context.Context, actor ownership.Actor, id uuid.UUID, req UpdateRequest) (*RestaurantDTO, error) {
	if err := s.ownership.RequireRestaurantOwner(ctx, actor, id); err != nil {
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
	if req.Address != nil {
		updates["address"] = strings.TrimSpace(*req.Address)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if len(updates) == 0 {
		return s.Get(ctx, id)
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update restaurant")
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, actor ownership.Actor, id uuid.UUID) error {
	if err := s.ownership.RequireRestaurantOwner(ctx, actor, id); err != nil {
		return err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete restaurant")
	}
	return nil
}

func (s *service) AddMember(ctx context.Context, actor ownership.Actor, restaurantID uuid.UUID, req AddMemberRequest) error {
	if err := s.ownership.RequireRestaurantOwner(ctx, actor, restaurantID); err != nil {
		return err
	}
	if req.AccountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if !req.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid member role")
	}

	member := &models.RestaurantMember{
		RestaurantID: restaurantID,
		AccountID:    req.AccountID,
		Role:         req.Role,
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		if pkgdb.IsUniqueViolation(err, "uq_restaurant_members_restaurant_account") {
			return pkgerrors.New(pkgerrors.CodeConflict, "account is already a member")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add member")
	}
	return nil
}

func (s *service) RemoveMember(ctx context.Context, actor ownership.Actor, restaurantID, accountID uuid.UUID) error {
	if err := s.ownership.RequireRestaurantOwner(ctx, actor, restaurantID); err != nil {
		return err
	}
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if err := s.repo.RemoveMember(ctx, restaurantID, accountID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove member")
	}
	return nil
}

func (s *service) ListMembers(ctx context.Context, actor ownership.Actor, restaurantID uuid.UUID) ([]MemberDTO, error) {
	if err := s.ownership.RequireRestaurantMember(ctx, actor, restaurantID); err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, restaurantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list members")
	}
	return toMemberDTOs(members), nil
}
