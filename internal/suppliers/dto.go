package suppliers

import (
	"time"

	"github.com/google/uuid"

	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
)

// CreateRequest contains the payload for creating a supplier.
type CreateRequest struct {
	Name         string `json:"name" validate:"required"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	Phone        string `json:"phone"`
}

// UpdateRequest carries optional field updates for a supplier.
type UpdateRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1"`
	ContactEmail *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	Phone        *string `json:"phone,omitempty"`
}

// AddMemberRequest grants an account membership in a supplier.
type AddMemberRequest struct {
	AccountID uuid.UUID        `json:"account_id" validate:"required"`
	Role      enums.MemberRole `json:"role" validate:"required"`
}

// SupplierDTO is the public shape of a supplier.
type SupplierDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// MemberDTO is the public shape of a supplier membership.
type MemberDTO struct {
	AccountID uuid.UUID        `json:"account_id"`
	Role      enums.MemberRole `json:"role"`
	CreatedAt time.Time        `json:"created_at"`
}

// ListResponse is a cursor page of suppliers.
type ListResponse struct {
	Suppliers  []SupplierDTO `json:"suppliers"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func toSupplierDTO(supplier *models.Supplier) *SupplierDTO {
	if supplier == nil {
		return nil
	}
	return &SupplierDTO{
		ID:           supplier.ID,
		Name:         supplier.Name,
		ContactEmail: supplier.ContactEmail,
		Phone:        supplier.Phone,
		CreatedAt:    supplier.CreatedAt,
	}
}

func toMemberDTOs(members []models.SupplierMember) []MemberDTO {
	out := make([]MemberDTO, 0, len(members))
	for _, m := range members {
		out = append(out, MemberDTO{
			AccountID: m.AccountID,
			Role:      m.Role,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}
