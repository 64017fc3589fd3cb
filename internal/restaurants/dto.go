package restaurants

import (
	"time"

	"github.com/google/uuid"

	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
)

// CreateRequest contains the payload for creating a restaurant.
type CreateRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// UpdateRequest carries optional field updates for a restaurant.
type UpdateRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}

// AddMemberRequest grants an account membership in a restaurant.
type AddMemberRequest struct {
	AccountID uuid.UUID        `json:"account_id" validate:"required"`
	Role      enums.MemberRole `json:"role" validate:"required"`
}

// RestaurantDTO is the public shape of a restaurant.
type RestaurantDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberDTO is the public shape of a restaurant membership.
type MemberDTO struct {
	AccountID uuid.UUID        `json:"account_id"`
	Role      enums.MemberRole `json:"role"`
	CreatedAt time.Time        `json:"created_at"`
}

// ListResponse is a cursor page of restaurants.
type ListResponse struct {
	Restaurants []RestaurantDTO `json:"restaurants"`
	NextCursor  string          `json:"next_cursor,omitempty"`
}

func toRestaurantDTO(restaurant *models.Restaurant) *RestaurantDTO {
	if restaurant == nil {
		return nil
	}
	return &RestaurantDTO{
		ID:        restaurant.ID,
		Name:      restaurant.Name,
		Address:   restaurant.Address,
		Phone:     restaurant.Phone,
		CreatedAt: restaurant.CreatedAt,
	}
}

func toMemberDTOs(members []models.RestaurantMember) []MemberDTO {
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
