package models

import "time"

type Unit string

const (
	UnitGram       Unit = "g"
	UnitKilogram   Unit = "kg"
	UnitMilliliter Unit = "ml"
	UnitLiter      Unit = "l"
	UnitPiece      Unit = "piece"
	UnitBag        Unit = "bag"
	UnitPack       Unit = "pack"
	UnitBottle     Unit = "bottle"
)

// Units lists every accepted ingredient unit.
var Units = []Unit{
	UnitGram, UnitKilogram, UnitMilliliter, UnitLiter,
	UnitPiece, UnitBag, UnitPack, UnitBottle,
}

func ValidUnit(s string) bool {
	for _, u := range Units {
		if string(u) == s {
			return true
		}
	}
	return false
}

type Ingredient struct {
	ID                     int        `json:"id" db:"id"`
	Name                   string     `json:"name" db:"name"`
	Quantity               string     `json:"quantity" db:"quantity"`
	Unit                   Unit       `json:"unit" db:"unit"`
	ExpiryDate             *time.Time `json:"expiry_date" db:"expiry_date"`
	RefrigeratorCategoryID int        `json:"refrigerator_category_id" db:"refrigerator_category_id"`
	CategoryID             int        `json:"category_id" db:"category_id"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

type CreateIngredientRequest struct {
	Name       string  `json:"name" validate:"required,min=1,max=255"`
	Quantity   string  `json:"quantity" validate:"required,quantity"`
	Unit       string  `json:"unit" validate:"required,unit"`
	ExpiryDate *string `json:"expiry_date,omitempty"`
}

// UpdateIngredientRequest is a partial update. An empty ExpiryDate clears
// the stored date.
type UpdateIngredientRequest struct {
	Name                   *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Quantity               *string `json:"quantity,omitempty" validate:"omitempty,quantity"`
	Unit                   *string `json:"unit,omitempty" validate:"omitempty,unit"`
	ExpiryDate             *string `json:"expiry_date,omitempty"`
	RefrigeratorCategoryID *int    `json:"refrigerator_category_id,omitempty" validate:"omitempty,min=1"`
}
