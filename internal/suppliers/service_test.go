package suppliers

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
	"github.com/forkline/forkline-backend/pkg/pagination"
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
		FullName:     "Supplier Tester",
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

	supplier, err := svc.Create(ctx, actor, CreateRequest{Name: "Harvest Co", ContactEmail: "sales@harvest.co"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	members, err := svc.ListMembers(ctx, actor, supplier.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected 1 member, got %d", len(members))
	}
	if members[0].Role != enums.MemberRoleOwner {
		t.Fatalf("expected owner role, got %s", members[0].Role)
	}
}

func TestUpdateRequiresOwner(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := mustCreateAccount(t, conn)
	staffAccount := mustCreateAccount(t, conn)
	ownerActor := ownership.Actor{AccountID: owner.ID, Role: enums.AccountRoleStaff}

	supplier, err := svc.Create(ctx, ownerActor, CreateRequest{Name: "Harvest Co"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.AddMember(ctx, ownerActor, supplier.ID, AddMemberRequest{
		AccountID: staffAccount.ID,
		Role:      enums.MemberRoleStaff,
	}); err != nil {
		t.Fatalf("add member: %v", err)
	}

	staffActor := ownership.Actor{AccountID: staffAccount.ID, Role: enums.AccountRoleStaff}
	name := "Renamed"
	_, err = svc.Update(ctx, staffActor, supplier.ID, UpdateRequest{Name: &name})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for staff, got %v", err)
	}

	updated, err := svc.Update(ctx, ownerActor, supplier.ID, UpdateRequest{Name: &name})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Fatalf("expected renamed supplier, got %q", updated.Name)
	}
}

func TestAddMemberTwiceConflicts(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := mustCreateAccount(t, conn)
	member := mustCreateAccount(t, conn)
	actor := ownership.Actor{AccountID: owner.ID, Role: enums.AccountRoleStaff}

	supplier, err := svc.Create(ctx, actor, CreateRequest{Name: "Harvest Co"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := AddMemberRequest{AccountID: member.ID, Role: enums.MemberRoleStaff}
	if err := svc.AddMember(ctx, actor, supplier.ID, req); err != nil {
		t.Fatalf("add member: %v", err)
	}
	err = svc.AddMember(ctx, actor, supplier.ID, req)
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestDeleteHidesSupplier(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := mustCreateAccount(t, conn)
	actor := ownership.Actor{AccountID: owner.ID, Role: enums.AccountRoleStaff}

	supplier, err := svc.Create(ctx, actor, CreateRequest{Name: "Harvest Co"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, actor, supplier.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err = svc.Get(ctx, supplier.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	list, err := svc.List(ctx, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Suppliers) != 0 {
		t.Fatalf("expected soft-deleted supplier hidden from list, got %d rows", len(list.Suppliers))
	}
}
