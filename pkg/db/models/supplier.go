package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/enums"
)

// Supplier is a selling organization offering products to restaurants.
type Supplier struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name         string           `gorm:"column:name;not null;index"`
	ContactEmail string           `gorm:"column:contact_email"`
	Phone        string           `gorm:"column:phone"`
	Members      []SupplierMember `gorm:"foreignKey:SupplierID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt   `gorm:"column:deleted_at;index"`
}

func (s *Supplier) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SupplierMember grants an account a role within a supplier.
type SupplierMember struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	SupplierID uuid.UUID        `gorm:"column:supplier_id;type:uuid;not null;uniqueIndex:uq_supplier_members_supplier_account"`
	AccountID  uuid.UUID        `gorm:"column:account_id;type:uuid;not null;uniqueIndex:uq_supplier_members_supplier_account"`
	Role       enums.MemberRole `gorm:"column:role;not null;default:'staff'"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (m *SupplierMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
