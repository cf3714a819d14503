package models

import "time"

type CategoryType string

const (
	CategorySystem CategoryType = "system"
	CategoryCustom CategoryType = "custom"
)

type Language string

const (
	LanguageKorean   Language = "ko"
	LanguageEnglish  Language = "en"
	LanguageJapanese Language = "ja"
)

// DefaultCategoryIcon is used when a custom category is created without one.
const DefaultCategoryIcon = "📦"

type Category struct {
	ID           int                   `json:"id" db:"id"`
	Type         CategoryType          `json:"type" db:"type"`
	Icon         string                `json:"icon" db:"icon"`
	UserID       *string               `json:"user_id,omitempty" db:"user_id"`
	Translations []CategoryTranslation `json:"translations"`
	CreatedAt    time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at" db:"updated_at"`
}

type CategoryTranslation struct {
	Language Language `json:"language" db:"language"`
	Name     string   `json:"name" db:"name"`
}

// RefrigeratorCategory links a category into one refrigerator's tab list.
type RefrigeratorCategory struct {
	ID             int       `json:"id" db:"id"`
	RefrigeratorID int       `json:"refrigerator_id" db:"refrigerator_id"`
	CategoryID     int       `json:"category_id" db:"category_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`

	// Joined fields
	Category    *Category    `json:"category,omitempty"`
	Ingredients []Ingredient `json:"ingredients,omitempty"`
}

type TranslationInput struct {
	Language string `json:"language" validate:"required,oneof=ko en ja"`
	Name     string `json:"name" validate:"max=100"`
}

// AttachCategoryRequest names an existing category by CategoryID or carries
// the content of a new one.
type AttachCategoryRequest struct {
	CategoryID   *int               `json:"category_id,omitempty" validate:"omitempty,min=1"`
	Type         string             `json:"type,omitempty" validate:"omitempty,oneof=system custom"`
	Icon         string             `json:"icon,omitempty" validate:"max=32"`
	Translations []TranslationInput `json:"translations,omitempty" validate:"omitempty,max=3,dive"`
}

type AttachCategoriesRequest struct {
	Categories []AttachCategoryRequest `json:"categories" validate:"required,min=1,max=50,dive"`
}

// UpdateCategoryRequest replaces the icon and, when Translations is present,
// the whole translation set.
type UpdateCategoryRequest struct {
	Icon         *string            `json:"icon,omitempty" validate:"omitempty,min=1,max=32"`
	Translations []TranslationInput `json:"translations,omitempty" validate:"omitempty,max=3,dive"`
}
