package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
)

// OrderEvent is the envelope serialized into the outbox payload column.
type OrderEvent struct {
	OrderID      uuid.UUID             `json:"order_id"`
	RestaurantID uuid.UUID             `json:"restaurant_id"`
	SupplierID   uuid.UUID             `json:"supplier_id"`
	Status       enums.OrderStatus     `json:"status"`
	TotalCents   int64                 `json:"total_cents"`
	EventType    enums.OutboxEventType `json:"event_type"`
	OccurredAt   time.Time             `json:"occurred_at"`
}

// Emitter writes outbox rows. Emit must run inside the transaction that
// produced the state change so the event commits or rolls back with it.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order *models.Order) error
}

type emitter struct {
	repo Repository
	now  func() time.Time
}

// NewEmitter builds an outbox emitter over the notifications repository.
func NewEmitter(repo Repository) (Emitter, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &emitter{repo: repo, now: time.Now}, nil
}

func (e *emitter) Emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order *models.Order) error {
	if !eventType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown event type")
	}
	if order == nil || order.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required for event")
	}

	payload, err := json.Marshal(OrderEvent{
		OrderID:      order.ID,
		RestaurantID: order.BuyerRestaurantID,
		SupplierID:   order.SupplierID,
		Status:       order.Status,
		TotalCents:   order.TotalCents,
		EventType:    eventType,
		OccurredAt:   e.now().UTC(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal event payload")
	}

	event := &models.OutboxEvent{
		EventType:   eventType,
		AggregateID: order.ID,
		Payload:     payload,
		Status:      enums.OutboxStatusPending,
	}
	if err := e.repo.WithTx(tx).InsertEvent(ctx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert outbox event")
	}
	return nil
}
