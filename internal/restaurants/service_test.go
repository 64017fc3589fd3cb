package restaurants

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/internal/ownership"
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
		&models.Restaurant{},
		&models.RestaurantMember{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return conn
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := openTestDB(t)
	checker, err := ownership.NewChecker(conn)
	if err != nil {
		t.Fatalf("new checker: %v", err)
	}
	svc, err := NewService(NewRepository(conn), pkgdb.NewFromConn(conn), checker)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func mustCreateAccount(t *testing.T, conn *gorm.DB) *models.Account {
	t.Helper()
	account := &models.Account{
		Email:        fmt.Sprintf("fl_test_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FullName:     "Restaurant Tester",
		Role:         enums.AccountRoleStaff,
	}
	if err := conn.Create(account).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func TestCreateMakesActorOwner(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	account := mustCreateAccount(t, conn)
	actor := ownership.Actor{AccountID: account.ID, Role: enums.AccountRoleStaff}

	restaurant, err := svc.Create(ctx, actor, CreateRequest{Name: "Blue Plate", Address: "44 Main St"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	members, err := svc.ListMembers(ctx, actor, restaurant.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 || members[0].Role != enums.MemberRoleOwner {
		t.Fatalf("expected creating account as owner, got %+v", members)
	}
}

func TestMemberManagement(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := mustCreateAccount(t, conn)
	staff := mustCreateAccount(t, conn)
	actor := ownership.Actor{AccountID: owner.ID, Role: enums.AccountRoleStaff}

	restaurant, err := svc.Create(ctx, actor, CreateRequest{Name: "Blue Plate"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.AddMember(ctx, actor, restaurant.ID, AddMemberRequest{
		AccountID: staff.ID,
		Role:      enums.MemberRoleStaff,
	}); err != nil {
		t.Fatalf("add member: %v", err)
	}

	staffActor := ownership.Actor{AccountID: staff.ID, Role: enums.AccountRoleStaff}
	err = svc.AddMember(ctx, staffActor, restaurant.ID, AddMemberRequest{
		AccountID: uuid.New(),
		Role:      enums.MemberRoleStaff,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected staff to be forbidden from adding members, got %v", err)
	}

	if err := svc.RemoveMember(ctx, actor, restaurant.ID, staff.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	members, err := svc.ListMembers(ctx, actor, restaurant.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected only owner to remain, got %d members", len(members))
	}
}

func TestGetUnknownRestaurant(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
