package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/internal/ownership"
	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
	"github.com/forkline/forkline-backend/pkg/pagination"
)

// NotificationDTO is the public shape of an order notification.
type NotificationDTO struct {
	ID        uuid.UUID             `json:"id"`
	OrderID   uuid.UUID             `json:"order_id"`
	EventType enums.OutboxEventType `json:"event_type"`
	ReadAt    *time.Time            `json:"read_at,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

// Service exposes the notification feed to owning parties.
type Service interface {
	ListForSupplier(ctx context.Context, actor ownership.Actor, supplierID uuid.UUID, limit int) ([]NotificationDTO, error)
	ListForRestaurant(ctx context.Context, actor ownership.Actor, restaurantID uuid.UUID, limit int) ([]NotificationDTO, error)
	MarkRead(ctx context.Context, actor ownership.Actor, id uuid.UUID) error
}

type service struct {
	repo      Repository
	ownership ownership.Checker
	now       func() time.Time
}

// NewService builds a notifications service.
func NewService(repo Repository, checker ownership.Checker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if checker == nil {
		return nil, fmt.Errorf("ownership checker required")
	}
	return &service{repo: repo, ownership: checker, now: time.Now}, nil
}

func (s *service) ListForSupplier(ctx context.Context, actor ownership.Actor, supplierID uuid.UUID, limit int) ([]NotificationDTO, error) {
	if err := s.ownership.RequireSupplierMember(ctx, actor, supplierID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListForSupplier(ctx, supplierID, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}
	return toDTOs(rows), nil
}

func (s *service) ListForRestaurant(ctx context.Context, actor ownership.Actor, restaurantID uuid.UUID, limit int) ([]NotificationDTO, error) {
	if err := s.ownership.RequireRestaurantMember(ctx, actor, restaurantID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListForRestaurant(ctx, restaurantID, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}
	return toDTOs(rows), nil
}

func (s *service) MarkRead(ctx context.Context, actor ownership.Actor, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load notification")
	}

	switch {
	case row.SupplierID != nil:
		err = s.ownership.RequireSupplierMember(ctx, actor, *row.SupplierID)
	case row.RestaurantID != nil:
		err = s.ownership.RequireRestaurantMember(ctx, actor, *row.RestaurantID)
	default:
		err = pkgerrors.New(pkgerrors.CodeForbidden, "notification has no owning party")
	}
	if err != nil {
		return err
	}

	if err := s.repo.MarkRead(ctx, id, s.now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification read")
	}
	return nil
}

func toDTOs(rows []models.Notification) []NotificationDTO {
	dtos := make([]NotificationDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, NotificationDTO{
			ID:        rows[i].ID,
			OrderID:   rows[i].OrderID,
			EventType: rows[i].EventType,
			ReadAt:    rows[i].ReadAt,
			CreatedAt: rows[i].CreatedAt,
		})
	}
	return dtos
}
