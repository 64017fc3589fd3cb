package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
	"github.com/forkline/forkline-backend/pkg/pagination"
)

func seedOrder(t *testing.T, f *fixture, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	c := &models.Cart{
		RestaurantID:       f.restaurant.ID,
		CreatedByAccountID: f.buyer.AccountID,
		Status:             enums.CartStatusConverted,
	}
	require.NoError(t, f.conn.Create(c).Error)

	order := &models.Order{
		CartID:             c.ID,
		BuyerRestaurantID:  f.restaurant.ID,
		SupplierID:         f.supplier.ID,
		CreatedByAccountID: f.buyer.AccountID,
		Status:             status,
		TotalCents:         2180,
		TaxCents:           180,
		PaymentMethod:      enums.PaymentMethodMock,
	}
	require.NoError(t, f.conn.Create(order).Error)
	require.NoError(t, f.conn.Model(order).Update("created_at", createdAt).Error)
	order.CreatedAt = createdAt
	return order
}

func TestTransitionStatusIsCompareAndSwap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, f, enums.OrderStatusPlaced, time.Now())

	ok, err := f.repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPlaced, enums.OrderStatusConfirmed, nil)
	require.NoError(t, err)
	require.True(t, ok)

	// second swap from the same expected state must lose
	ok, err = f.repo.TransitionStatus(ctx, order.ID, enums.OrderStatusPlaced, enums.OrderStatusConfirmed, nil)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := f.repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusConfirmed, got.Status)
}

func TestTransitionStatusAppliesExtraColumns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, f, enums.OrderStatusConfirmed, time.Now())

	deliveredAt := time.Now().UTC().Truncate(time.Second)
	ok, err := f.repo.TransitionStatus(ctx, order.ID, enums.OrderStatusConfirmed, enums.OrderStatusDelivered, map[string]any{
		"delivered_at": deliveredAt,
	})
	require.NoError(t, err)
	require.True(t, ok)

	got, err := f.repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusDelivered, got.Status)
	require.NotNil(t, got.DeliveredAt)
}

func TestListForRestaurantPaginatesWithoutOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).UTC()
	var seeded []uuid.UUID
	for i := 0; i < 3; i++ {
		order := seedOrder(t, f, enums.OrderStatusPlaced, base.Add(time.Duration(i)*time.Minute))
		seeded = append(seeded, order.ID)
	}

	first, hasMore, err := f.repo.ListForRestaurant(ctx, f.restaurant.ID, ListFilters{}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.True(t, hasMore)
	require.Len(t, first, 2)

	last := first[len(first)-1]
	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})

	second, hasMore, err := f.repo.ListForRestaurant(ctx, f.restaurant.ID, ListFilters{}, pagination.Params{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.False(t, hasMore)
	require.Len(t, second, 1)

	seen := map[uuid.UUID]bool{}
	for _, row := range append(first, second...) {
		require.False(t, seen[row.ID], "order %s returned twice", row.ID)
		seen[row.ID] = true
	}
	for _, id := range seeded {
		require.True(t, seen[id], "order %s missing from pages", id)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seedOrder(t, f, enums.OrderStatusPlaced, time.Now().Add(-2*time.Minute))
	confirmed := seedOrder(t, f, enums.OrderStatusConfirmed, time.Now().Add(-time.Minute))

	status := enums.OrderStatusConfirmed
	rows, hasMore, err := f.repo.ListForSupplier(ctx, f.supplier.ID, ListFilters{Status: &status}, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.False(t, hasMore)
	require.Len(t, rows, 1)
	require.Equal(t, confirmed.ID, rows[0].ID)
}

func TestIdempotencyKeyLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, f, enums.OrderStatusPlaced, time.Now())

	key := &models.IdempotencyKey{Key: "repo-test-key"}
	require.NoError(t, f.repo.CreateIdempotencyKey(ctx, key))

	row, err := f.repo.FindIdempotencyKey(ctx, "repo-test-key")
	require.NoError(t, err)
	require.Nil(t, row.OrderID)

	require.NoError(t, f.repo.CompleteIdempotencyKey(ctx, key.ID, order.ID))

	row, err = f.repo.FindIdempotencyKey(ctx, "repo-test-key")
	require.NoError(t, err)
	require.NotNil(t, row.OrderID)
	require.Equal(t, order.ID, *row.OrderID)
}
