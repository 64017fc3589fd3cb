package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/internal/ownership"
	"github.com/forkline/forkline-backend/internal/products"
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
		&models.Restaurant{},
		&models.RestaurantMember{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return conn
}

type fixture struct {
	svc        Service
	repo       Repository
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
	repo := NewRepository(conn)
	svc, err := NewService(repo, products.NewRepository(conn), checker)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	account := &models.Account{
		Email:        fmt.Sprintf("fl_test_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FullName:     "Cart Tester",
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
		repo:       repo,
		conn:       conn,
		actor:      ownership.Actor{AccountID: account.ID, Role: enums.AccountRoleStaff},
		restaurant: restaurant,
		supplier:   supplier,
	}
}

func (f *fixture) createProduct(t *testing.T, name string, priceCents int64, taxRate string) *models.Product {
	t.Helper()
	product := &models.Product{
		SupplierID:   f.supplier.ID,
		Name:         name,
		SKU:          fmt.Sprintf("SKU-%s", uuid.NewString()),
		Unit:         "kg",
		PriceCents:   priceCents,
		TaxRate:      decimal.RequireFromString(taxRate),
		StockQty:     100,
		Availability: enums.AvailabilityStatusAvailable,
		Active:       true,
	}
	if err := f.conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func (f *fixture) createCart(t *testing.T) *CartDTO {
	t.Helper()
	dto, err := f.svc.Create(context.Background(), f.actor, CreateRequest{RestaurantID: f.restaurant.ID})
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	return dto
}

func TestCreateAndGetCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.createCart(t)
	if created.Status != enums.CartStatusOpen {
		t.Fatalf("expected open cart, got %s", created.Status)
	}
	if created.RestaurantID != f.restaurant.ID {
		t.Fatalf("unexpected restaurant id %s", created.RestaurantID)
	}

	fetched, err := f.svc.Get(ctx, f.actor, created.ID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if fetched.ID != created.ID {
		t.Fatalf("expected cart %s, got %s", created.ID, fetched.ID)
	}
	if len(fetched.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(fetched.Items))
	}
}

func TestCreateCartRequiresMembership(t *testing.T) {
	f := newFixture(t)
	stranger := ownership.Actor{AccountID: uuid.New(), Role: enums.AccountRoleStaff}

	_, err := f.svc.Create(context.Background(), stranger, CreateRequest{RestaurantID: f.restaurant.ID})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAddItemSnapshotsPriceAndTax(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := f.createCart(t)
	product := f.createProduct(t, "Heirloom Tomatoes", 450, "9")

	dto, err := f.svc.AddItem(ctx, f.actor, cart.ID, AddItemRequest{
		ProductID: product.ID,
		Qty:       decimal.NewFromFloat(2.5),
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(dto.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(dto.Items))
	}
	line := dto.Items[0]
	if line.UnitPriceCents != 450 {
		t.Fatalf("expected snapshotted price 450, got %d", line.UnitPriceCents)
	}
	if !line.TaxRate.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("expected snapshotted tax rate 9, got %s", line.TaxRate)
	}

	// A later price change must not touch the existing line.
	if err := f.conn.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("price_cents", 999).Error; err != nil {
		t.Fatalf("reprice product: %v", err)
	}
	dto, err = f.svc.Get(ctx, f.actor, cart.ID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if dto.Items[0].UnitPriceCents != 450 {
		t.Fatalf("snapshot drifted to %d", dto.Items[0].UnitPriceCents)
	}
}

func TestAddItemReplacesExistingLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := f.createCart(t)
	product := f.createProduct(t, "Olive Oil", 1200, "20")

	if _, err := f.svc.AddItem(ctx, f.actor, cart.ID, AddItemRequest{
		ProductID: product.ID,
		Qty:       decimal.NewFromInt(1),
	}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	dto, err := f.svc.AddItem(ctx, f.actor, cart.ID, AddItemRequest{
		ProductID: product.ID,
		Qty:       decimal.NewFromInt(3),
	})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(dto.Items) != 1 {
		t.Fatalf("expected a single merged line, got %d", len(dto.Items))
	}
	if !dto.Items[0].Qty.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected qty 3, got %s", dto.Items[0].Qty)
	}
}

func TestAddItemRejectsUnorderableProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := f.createCart(t)

	inactive := f.createProduct(t, "Retired Blend", 800, "9")
	if err := f.conn.Model(&models.Product{}).Where("id = ?", inactive.ID).
		Update("active", false).Error; err != nil {
		t.Fatalf("deactivate product: %v", err)
	}
	_, err := f.svc.AddItem(ctx, f.actor, cart.ID, AddItemRequest{
		ProductID: inactive.ID,
		Qty:       decimal.NewFromInt(1),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for inactive product, got %v", err)
	}

	unavailable := f.createProduct(t, "Seasonal Truffles", 5000, "9")
	if err := f.conn.Model(&models.Product{}).Where("id = ?", unavailable.ID).
		Update("availability", enums.AvailabilityStatusUnavailable).Error; err != nil {
		t.Fatalf("mark unavailable: %v", err)
	}
	_, err = f.svc.AddItem(ctx, f.actor, cart.ID, AddItemRequest{
		ProductID: unavailable.ID,
		Qty:       decimal.NewFromInt(1),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for unavailable product, got %v", err)
	}

	_, err = f.svc.AddItem(ctx, f.actor, cart.ID, AddItemRequest{
		ProductID: uuid.New(),
		Qty:       decimal.NewFromInt(1),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}
}

func TestAddItemValidatesQty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := f.createCart(t)
	product := f.createProduct(t, "Flour", 300, "0")

	for _, qty := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-2)} {
		_, err := f.svc.AddItem(ctx, f.actor, cart.ID, AddItemRequest{ProductID: product.ID, Qty: qty})
		if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for qty %s, got %v", qty, err)
		}
	}
}

func TestUpdateAndRemoveItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := f.createCart(t)
	product := f.createProduct(t, "Basil", 250, "9")

	dto, err := f.svc.AddItem(ctx, f.actor, cart.ID, AddItemRequest{
		ProductID: product.ID,
		Qty:       decimal.NewFromInt(2),
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	itemID := dto.Items[0].ID

	dto, err = f.svc.UpdateItem(ctx, f.actor, cart.ID, itemID, UpdateItemRequest{Qty: decimal.NewFromInt(5)})
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if !dto.Items[0].Qty.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected qty 5, got %s", dto.Items[0].Qty)
	}

	dto, err = f.svc.RemoveItem(ctx, f.actor, cart.ID, itemID)
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if len(dto.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(dto.Items))
	}

	_, err = f.svc.UpdateItem(ctx, f.actor, cart.ID, itemID, UpdateItemRequest{Qty: decimal.NewFromInt(1)})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found after removal, got %v", err)
	}
}

func TestUpdateItemRejectsForeignCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.createCart(t)
	second := f.createCart(t)
	product := f.createProduct(t, "Saffron", 9000, "9")

	dto, err := f.svc.AddItem(ctx, f.actor, first.ID, AddItemRequest{
		ProductID: product.ID,
		Qty:       decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	_, err = f.svc.UpdateItem(ctx, f.actor, second.ID, dto.Items[0].ID, UpdateItemRequest{Qty: decimal.NewFromInt(2)})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for foreign item, got %v", err)
	}
}

func TestConvertedCartIsImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := f.createCart(t)
	product := f.createProduct(t, "Butter", 700, "9")

	dto, err := f.svc.AddItem(ctx, f.actor, cart.ID, AddItemRequest{
		ProductID: product.ID,
		Qty:       decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := f.repo.MarkConverted(ctx, cart.ID); err != nil {
		t.Fatalf("mark converted: %v", err)
	}

	_, err = f.svc.AddItem(ctx, f.actor, cart.ID, AddItemRequest{
		ProductID: product.ID,
		Qty:       decimal.NewFromInt(2),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on converted cart, got %v", err)
	}
	_, err = f.svc.UpdateItem(ctx, f.actor, cart.ID, dto.Items[0].ID, UpdateItemRequest{Qty: decimal.NewFromInt(2)})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on converted cart, got %v", err)
	}
	_, err = f.svc.RemoveItem(ctx, f.actor, cart.ID, dto.Items[0].ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on converted cart, got %v", err)
	}

	// The converted cart stays readable.
	fetched, err := f.svc.Get(ctx, f.actor, cart.ID)
	if err != nil {
		t.Fatalf("get converted cart: %v", err)
	}
	if fetched.Status != enums.CartStatusConverted {
		t.Fatalf("expected converted status, got %s", fetched.Status)
	}
}

func TestListItemsForUpdateMatchesListItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := f.createCart(t)
	first := f.createProduct(t, "Carrots", 120, "9")
	second := f.createProduct(t, "Leeks", 340, "9")

	for _, p := range []*models.Product{first, second} {
		if _, err := f.svc.AddItem(ctx, f.actor, cart.ID, AddItemRequest{
			ProductID: p.ID,
			Qty:       decimal.NewFromInt(1),
		}); err != nil {
			t.Fatalf("add item: %v", err)
		}
	}

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		locked, err := f.repo.WithTx(tx).ListItemsForUpdate(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(locked) != 2 {
			t.Fatalf("expected 2 locked items, got %d", len(locked))
		}
		if locked[0].ProductID != first.ID || locked[1].ProductID != second.ID {
			t.Fatalf("locked listing out of insertion order")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("locked listing: %v", err)
	}

	plain, err := f.repo.ListItems(ctx, cart.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(plain) != 2 {
		t.Fatalf("expected 2 items, got %d", len(plain))
	}
}
