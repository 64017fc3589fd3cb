package suppliers

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

// Service defines supplier management operations.
type Service interface {
	Create(ctx context.Context, actor ownership.Actor, req CreateRequest) (*SupplierDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*SupplierDTO, error)
	List(ctx context.Context, params pagination.Params) (*ListResponse, error)
	Update(ctx context.Context, actor ownership.Actor, id uuid.UUID, req UpdateRequest) (*SupplierDTO, error)
	Delete(ctx context.Context, actor ownership.Actor, id uuid.UUID) error
	AddMember(ctx context.Context, actor ownership.Actor, supplierID uuid.UUID, req AddMemberRequest) error
	RemoveMember(ctx context.Context, actor ownership.Actor, supplierID, accountID uuid.UUID) error
	ListMembers(ctx context.Context, actor ownership.Actor, supplierID uuid.UUID) ([]MemberDTO, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	ownership ownership.Checker
}

// NewService builds a supplier service with the required dependencies.
func NewService(repo Repository, tx txRunner, checker ownership.Checker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("suppliers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if checker == nil {
		return nil, fmt.Errorf("ownership checker required")
	}
	return &service{repo: repo, tx: tx, ownership: checker}, nil
}

// Create inserts the supplier and makes the creating account its owner in
// one transaction.
func (s *service) Create(ctx context.Context, actor ownership.Actor, req CreateRequest) (*SupplierDTO, error) {
	if actor.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	supplier := &models.Supplier{
		Name:         name,
		ContactEmail: strings.TrimSpace(req.ContactEmail),
		Phone:        strings.TrimSpace(req.Phone),
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, supplier); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create supplier")
		}
		member := &models.SupplierMember{
			SupplierID: supplier.ID,
			AccountID:  actor.AccountID,
			Role:       enums.MemberRoleOwner,
		}
		if err := repo.AddMember(ctx, member); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add owner membership")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toSupplierDTO(supplier), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SupplierDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load supplier")
	}
	return toSupplierDTO(supplier), nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ListResponse, error) {
	rows, hasMore, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list suppliers")
	}
	resp := &ListResponse{Suppliers: make([]SupplierDTO, 0, len(rows))}
	for i := range rows {
		resp.Suppliers = append(resp.Suppliers, *toSupplierDTO(&rows[i]))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		resp.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return resp, nil
}

func (s *service) Update(ctx context.Context, actor ownership.Actor, id uuid.UUID, req UpdateRequest) (*SupplierDTO, error) {
	if err := s.ownership.RequireSupplierOwner(ctx, actor, id); err != nil {
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
	if req.ContactEmail != nil {
		updates["contact_email"] = strings.TrimSpace(*req.ContactEmail)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if len(updates) == 0 {
		return s.Get(ctx, id)
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update supplier")
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, actor ownership.Actor, id uuid.UUID) error {
	if err := s.ownership.RequireSupplierOwner(ctx, actor, id); err != nil {
		return err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete supplier")
	}
	return nil
}

func (s *service) AddMember(ctx context.Context, actor ownership.Actor, supplierID uuid.UUID, req AddMemberRequest) error {
	if err := s.ownership.RequireSupplierOwner(ctx, actor, supplierID); err != nil {
		return err
	}
	if req.AccountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if !req.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid member role")
	}

	member := &models.SupplierMember{
		SupplierID: supplierID,
		AccountID:  req.AccountID,
		Role:       req.Role,
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		if pkgdb.IsUniqueViolation(err, "uq_supplier_members_supplier_account") {
			return pkgerrors.New(pkgerrors.CodeConflict, "account is already a member")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add member")
	}
	return nil
}

func (s *service) RemoveMember(ctx context.Context, actor ownership.Actor, supplierID, accountID uuid.UUID) error {
	if err := s.ownership.RequireSupplierOwner(ctx, actor, supplierID); err != nil {
		return err
	}
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if err := s.repo.RemoveMember(ctx, supplierID, accountID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove member")
	}
	return nil
}

func (s *service) ListMembers(ctx context.Context, actor ownership.Actor, supplierID uuid.UUID) ([]MemberDTO, error) {
	if err := s.ownership.RequireSupplierMember(ctx, actor, supplierID); err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, supplierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list members")
	}
	return toMemberDTOs(members), nil
}
