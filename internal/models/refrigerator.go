package models

import "time"

type RefrigeratorType string

const (
	RefrigeratorNormal  RefrigeratorType = "normal"
	RefrigeratorVirtual RefrigeratorType = "virtual"
)

type Refrigerator struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Description *string          `json:"description" db:"description"`
	OwnerID     string           `json:"owner_id" db:"owner_id"`
	IsShared    bool             `json:"is_shared" db:"is_shared"`
	Type        RefrigeratorType `json:"type" db:"type"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`

	// Computed fields
	Role            Role     `json:"role,omitempty"`
	IsOwner         bool     `json:"is_owner,omitempty"`
	OwnerEmail      string   `json:"owner_email,omitempty"`
	MemberCount     int      `json:"member_count"`
	IngredientCount int      `json:"ingredient_count"`
	Members         []Member `json:"members,omitempty"`
}

type CreateRefrigeratorRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Type        string  `json:"type" validate:"omitempty,oneof=normal virtual"`
}

type UpdateRefrigeratorRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
}
