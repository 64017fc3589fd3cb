package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/enums"
)

// Restaurant is a buying organization placing orders with suppliers.
type Restaurant struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Name      string             `gorm:"column:name;not null;index"`
	Address   string             `gorm:"column:address"`
	Phone     string             `gorm:"column:phone"`
	Members   []RestaurantMember `gorm:"foreignKey:RestaurantID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt     `gorm:"column:deleted_at;index"`
}

func (r *Restaurant) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RestaurantMember grants an account a role within a restaurant.
type RestaurantMember struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	RestaurantID uuid.UUID        `gorm:"column:restaurant_id;type:uuid;not null;uniqueIndex:uq_restaurant_members_restaurant_account"`
	AccountID    uuid.UUID        `gorm:"column:account_id;type:uuid;not null;uniqueIndex:uq_restaurant_members_restaurant_account"`
	Role         enums.MemberRole `gorm:"column:role;not null;default:'staff'"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (m *RestaurantMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
