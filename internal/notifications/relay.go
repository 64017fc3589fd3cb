package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/db/models"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
	"github.com/forkline/forkline-backend/pkg/logger"
)

const relayBatchSize = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Relay drains pending outbox rows and fans each event out into one
// notification per owning party. Dispatch is at-least-once: a crash
// between insert and mark re-delivers the batch on the next tick.
type Relay struct {
	repo     Repository
	tx       txRunner
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time
}

// NewRelay builds an outbox relay.
func NewRelay(repo Repository, tx txRunner, log *logger.Logger, interval time.Duration) (*Relay, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Relay{repo: repo, tx: tx, log: log, interval: interval, now: time.Now}, nil
}

// Run dispatches on a fixed interval until the context is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := r.DispatchPending(ctx); err != nil {
				r.log.Error(ctx, "outbox dispatch failed", err)
			} else if n > 0 {
				r.log.Info(r.log.WithField(ctx, "dispatched", n), "outbox events dispatched")
			}
		}
	}
}

// DispatchPending processes one batch and returns how many events it
// dispatched.
func (r *Relay) DispatchPending(ctx context.Context) (int, error) {
	var dispatched int
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.repo.WithTx(tx)
		events, err := repo.FetchPending(ctx, relayBatchSize)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fetch pending events")
		}
		if len(events) == 0 {
			return nil
		}

		rows := make([]models.Notification, 0, len(events)*2)
		ids := make([]uuid.UUID, 0, len(events))
		for i := range events {
			event := events[i]
			ids = append(ids, event.ID)

			var envelope OrderEvent
			if err := json.Unmarshal(event.Payload, &envelope); err != nil {
				// A malformed payload must not wedge the queue; mark it
				// dispatched and move on.
				r.log.Error(ctx, "skipping malformed outbox payload", err)
				continue
			}
			supplierID := envelope.SupplierID
			restaurantID := envelope.RestaurantID
			rows = append(rows,
				models.Notification{
					SupplierID: &supplierID,
					OrderID:    envelope.OrderID,
					EventType:  event.EventType,
				},
				models.Notification{
					RestaurantID: &restaurantID,
					OrderID:      envelope.OrderID,
					EventType:    event.EventType,
				},
			)
		}

		if err := repo.InsertNotifications(ctx, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert notifications")
		}
		if err := repo.MarkDispatched(ctx, ids, r.now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark events dispatched")
		}
		dispatched = len(ids)
		return nil
	})
	return dispatched, err
}
