package checkout

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/internal/cart"
	"github.com/forkline/forkline-backend/internal/notifications"
	"github.com/forkline/forkline-backend/internal/orders"
	"github.com/forkline/forkline-backend/internal/ownership"
	"github.com/forkline/forkline-backend/internal/products"
	pkgdb "github.com/forkline/forkline-backend/pkg/db"
	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Account{},
		&models.Supplier{},
		&models.SupplierMember{},
		&models.Restaurant{},
		&models.RestaurantMember{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.IdempotencyKey{},
		&models.OutboxEvent{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return conn
}

type fixture struct {
	svc        Service
	conn       *gorm.DB
	actor      ownership.Actor
	restaurant *models.Restaurant
	supplier   *models.Supplier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := openTestDB(t)
	checker, err := ownership.NewChecker(conn)
	if err != nil {
		t.Fatalf("new checker: %v", err)
	}
	emitter, err := notifications.NewEmitter(notifications.NewRepository(conn))
	if err != nil {
		t.Fatalf("new emitter: %v", err)
	}
	svc, err := NewService(
		cart.NewRepository(conn),
		products.NewRepository(conn),
		orders.NewRepository(conn),
		pkgdb.NewFromConn(conn),
		checker,
		emitter,
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	account := &models.Account{
		Email:        fmt.Sprintf("fl_test_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FullName:     "Checkout Tester",
		Role:         enums.AccountRoleStaff,
	}
	if err := conn.Create(account).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	restaurant := &models.Restaurant{Name: "Blue Finch"}
	if err := conn.Create(restaurant).Error; err != nil {
		t.Fatalf("create restaurant: %v", err)
	}
	if err := conn.Create(&models.RestaurantMember{
		RestaurantID: restaurant.ID,
		AccountID:    account.ID,
		Role:         enums.MemberRoleOwner,
	}).Error; err != nil {
		t.Fatalf("create membership: %v", err)
	}
	supplier := &models.Supplier{Name: "Harvest Co"}
	if err := conn.Create(supplier).Error; err != nil {
		t.Fatalf("create supplier: %v", err)
	}

	return &fixture{
		svc:        svc,
		conn:       conn,
		actor:      ownership.Actor{AccountID: account.ID, Role: enums.AccountRoleStaff},
		restaurant: restaurant,
		supplier:   supplier,
	}
}

func (f *fixture) createProduct(t *testing.T, supplierID uuid.UUID, priceCents, stock int64, taxRate string) *models.Product {
	t.Helper()
	product := &models.Product{
		SupplierID:   supplierID,
		Name:         fmt.Sprintf("Product %s", uuid.NewString()[:8]),
		SKU:          fmt.Sprintf("SKU-%s", uuid.NewString()),
		Unit:         "kg",
		PriceCents:   priceCents,
		TaxRate:      decimal.RequireFromString(taxRate),
		StockQty:     stock,
		Availability: enums.AvailabilityStatusAvailable,
		Active:       true,
	}
	if err := f.conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func (f *fixture) createCartWith(t *testing.T, lines ...*models.CartItem) *models.Cart {
	t.Helper()
	cartRow := &models.Cart{
		RestaurantID:       f.restaurant.ID,
		CreatedByAccountID: f.actor.AccountID,
		Status:             enums.CartStatusOpen,
	}
	if err := f.conn.Create(cartRow).Error; err != nil {
		t.Fatalf("create cart: %v", err)
	}
	for _, line := range lines {
		line.CartID = cartRow.ID
		if err := f.conn.Create(line).Error; err != nil {
			t.Fatalf("create cart item: %v", err)
		}
	}
	return cartRow
}

func (f *fixture) stockOf(t *testing.T, productID uuid.UUID) int64 {
	t.Helper()
	var product models.Product
	if err := f.conn.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product.StockQty
}

func line(product *models.Product, qty string) *models.CartItem {
	return &models.CartItem{
		ProductID:      product.ID,
		Qty:            decimal.RequireFromString(qty),
		UnitPriceCents: product.PriceCents,
		TaxRate:        product.TaxRate,
	}
}

func TestCheckoutConvertsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, f.supplier.ID, 1000, 10, "9")
	cartRow := f.createCartWith(t, line(product, "2"))

	dto, err := f.svc.Checkout(ctx, f.actor, Request{
		CartID:         cartRow.ID,
		IdempotencyKey: uuid.NewString(),
		PaymentMethod:  enums.PaymentMethodCard,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if dto.TotalCents != 2180 {
		t.Fatalf("expected total 2180, got %d", dto.TotalCents)
	}
	if dto.TaxCents != 180 {
		t.Fatalf("expected tax 180, got %d", dto.TaxCents)
	}
	if dto.Status != enums.OrderStatusPlaced {
		t.Fatalf("expected placed order, got %s", dto.Status)
	}
	if dto.SupplierID != f.supplier.ID {
		t.Fatalf("expected supplier %s, got %s", f.supplier.ID, dto.SupplierID)
	}
	if dto.PaymentMethod != enums.PaymentMethodCard {
		t.Fatalf("expected card payment, got %s", dto.PaymentMethod)
	}

	if got := f.stockOf(t, product.ID); got != 8 {
		t.Fatalf("expected stock 8 after checkout, got %d", got)
	}

	var cartAfter models.Cart
	if err := f.conn.First(&cartAfter, "id = ?", cartRow.ID).Error; err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	if cartAfter.Status != enums.CartStatusConverted {
		t.Fatalf("expected converted cart, got %s", cartAfter.Status)
	}

	var events int64
	if err := f.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", enums.EventOrderPlaced, dto.ID).
		Count(&events).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events != 1 {
		t.Fatalf("expected 1 placed event, got %d", events)
	}
}

func TestCheckoutRoundsPerLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, f.supplier.ID, 450, 10, "9")
	cartRow := f.createCartWith(t, line(product, "2.5"))

	dto, err := f.svc.Checkout(ctx, f.actor, Request{
		CartID:         cartRow.ID,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	// 2.5 * 450 = 1125, tax 101.25 -> 101.
	if dto.TotalCents != 1226 || dto.TaxCents != 101 {
		t.Fatalf("expected 1226/101, got %d/%d", dto.TotalCents, dto.TaxCents)
	}
	// 10 - 2.5 rounds to 8.
	if got := f.stockOf(t, product.ID); got != 8 {
		t.Fatalf("expected stock 8, got %d", got)
	}
}

func TestCheckoutRejectsOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, f.supplier.ID, 1000, 10, "9")
	cartRow := f.createCartWith(t, line(product, "11"))

	_, err := f.svc.Checkout(ctx, f.actor, Request{
		CartID:         cartRow.ID,
		IdempotencyKey: uuid.NewString(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInventory) {
		t.Fatalf("expected inventory error, got %v", err)
	}

	if got := f.stockOf(t, product.ID); got != 10 {
		t.Fatalf("stock must be untouched, got %d", got)
	}
	var cartAfter models.Cart
	if err := f.conn.First(&cartAfter, "id = ?", cartRow.ID).Error; err != nil {
		t.Fatalf("reload cart: %v", err)
	}
	if cartAfter.Status != enums.CartStatusOpen {
		t.Fatalf("cart must stay open, got %s", cartAfter.Status)
	}
	var orderCount int64
	if err := f.conn.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("no order may exist after a rejected checkout, got %d", orderCount)
	}
}

func TestCheckoutExactStockSellsOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, f.supplier.ID, 1000, 10, "0")
	cartRow := f.createCartWith(t, line(product, "10"))

	if _, err := f.svc.Checkout(ctx, f.actor, Request{
		CartID:         cartRow.ID,
		IdempotencyKey: uuid.NewString(),
	}); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if got := f.stockOf(t, product.ID); got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}
}

func TestCheckoutReplaysSettledKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, f.supplier.ID, 1000, 10, "9")
	cartRow := f.createCartWith(t, line(product, "2"))
	key := uuid.NewString()

	first, err := f.svc.Checkout(ctx, f.actor, Request{CartID: cartRow.ID, IdempotencyKey: key})
	if err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	second, err := f.svc.Checkout(ctx, f.actor, Request{CartID: cartRow.ID, IdempotencyKey: key})
	if err != nil {
		t.Fatalf("replay checkout: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("replay returned a different order: %s vs %s", first.ID, second.ID)
	}
	// No double decrement.
	if got := f.stockOf(t, product.ID); got != 8 {
		t.Fatalf("expected stock 8 after replay, got %d", got)
	}
	var orderCount int64
	if err := f.conn.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 1 {
		t.Fatalf("expected exactly one order, got %d", orderCount)
	}
}

func TestCheckoutInFlightKeyConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, f.supplier.ID, 1000, 10, "9")
	cartRow := f.createCartWith(t, line(product, "2"))

	// Simulate a concurrent request that registered the key but has not
	// settled it yet.
	key := uuid.NewString()
	if err := f.conn.Create(&models.IdempotencyKey{Key: key}).Error; err != nil {
		t.Fatalf("seed key: %v", err)
	}

	_, err := f.svc.Checkout(ctx, f.actor, Request{CartID: cartRow.ID, IdempotencyKey: key})
	if !pkgerrors.HasCode(err, pkgerrors.CodeIdempotency) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
	if got := f.stockOf(t, product.ID); got != 10 {
		t.Fatalf("stock must be untouched, got %d", got)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	cartRow := f.createCartWith(t)

	_, err := f.svc.Checkout(context.Background(), f.actor, Request{
		CartID:         cartRow.ID,
		IdempotencyKey: uuid.NewString(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCheckoutConvertedCartConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, f.supplier.ID, 1000, 10, "9")
	cartRow := f.createCartWith(t, line(product, "2"))

	if _, err := f.svc.Checkout(ctx, f.actor, Request{CartID: cartRow.ID, IdempotencyKey: uuid.NewString()}); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	// A fresh key against the converted cart is a conflict, not a replay.
	_, err := f.svc.Checkout(ctx, f.actor, Request{CartID: cartRow.ID, IdempotencyKey: uuid.NewString()})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCheckoutMixedSuppliersRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := &models.Supplier{Name: "Rival Farms"}
	if err := f.conn.Create(other).Error; err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	first := f.createProduct(t, f.supplier.ID, 1000, 10, "9")
	second := f.createProduct(t, other.ID, 500, 10, "9")
	cartRow := f.createCartWith(t, line(first, "2"), line(second, "1"))

	_, err := f.svc.Checkout(ctx, f.actor, Request{
		CartID:         cartRow.ID,
		IdempotencyKey: uuid.NewString(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	// The first line's reservation must roll back with the transaction.
	if got := f.stockOf(t, first.ID); got != 10 {
		t.Fatalf("expected stock 10 after rollback, got %d", got)
	}
}

func TestCheckoutRequiresMembership(t *testing.T) {
	f := newFixture(t)
	product := f.createProduct(t, f.supplier.ID, 1000, 10, "9")
	cartRow := f.createCartWith(t, line(product, "2"))

	stranger := ownership.Actor{AccountID: uuid.New(), Role: enums.AccountRoleStaff}
	_, err := f.svc.Checkout(context.Background(), stranger, Request{
		CartID:         cartRow.ID,
		IdempotencyKey: uuid.NewString(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCheckoutRejectsDeactivatedProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.createProduct(t, f.supplier.ID, 1000, 10, "9")
	cartRow := f.createCartWith(t, line(product, "2"))

	if err := f.conn.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("active", false).Error; err != nil {
		t.Fatalf("deactivate product: %v", err)
	}

	_, err := f.svc.Checkout(ctx, f.actor, Request{
		CartID:         cartRow.ID,
		IdempotencyKey: uuid.NewString(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
