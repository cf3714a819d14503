package models

import "time"

type RecipeType string

const (
	RecipeCustom RecipeType = "custom"
	RecipeAI     RecipeType = "ai"
)

// SharedRecipePageSize is the page size of the shared recipe listing.
const SharedRecipePageSize = 12

type Recipe struct {
	ID            int                 `json:"id" db:"id"`
	OwnerID       string              `json:"owner_id" db:"owner_id"`
	Type          RecipeType          `json:"type" db:"type"`
	IsPublic      bool                `json:"is_public" db:"is_public"`
	FavoriteCount int                 `json:"favorite_count" db:"favorite_count"`
	Translations  []RecipeTranslation `json:"translations"`
	Tags          []string            `json:"tags"`
	CreatedAt     time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" db:"updated_at"`

	// Computed fields
	IsFavorited bool `json:"is_favorited"`
}

type RecipeTranslation struct {
	Language    Language `json:"language" db:"language"`
	Title       string   `json:"title" db:"title"`
	Description *string  `json:"description,omitempty" db:"description"`
	Content     string   `json:"content" db:"content"`
}

type RecipeTranslationInput struct {
	Language    string  `json:"language" validate:"required,oneof=ko en ja"`
	Title       string  `json:"title" validate:"required,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Content     string  `json:"content" validate:"required"`
}

type CreateRecipeRequest struct {
	Type         string                   `json:"type" validate:"omitempty,oneof=custom ai"`
	IsPublic     bool                     `json:"is_public"`
	Translations []RecipeTranslationInput `json:"translations" validate:"required,min=1,max=3,dive"`
	Tags         []string                 `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
}

// UpdateRecipeRequest is a partial update. Translations are upserted by
// language; Tags, when present, replace the whole tag set.
type UpdateRecipeRequest struct {
	IsPublic     *bool                    `json:"is_public,omitempty"`
	Translations []RecipeTranslationInput `json:"translations,omitempty" validate:"omitempty,max=3,dive"`
	Tags         *[]string                `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
}

type ShareRecipeRequest struct {
	IsPublic *bool `json:"is_public" validate:"required"`
}

const (
	FavoriteAdd    = "add"
	FavoriteRemove = "remove"
)

type BatchFavoritesRequest struct {
	RecipeIDs []int  `json:"recipe_ids" validate:"required,min=1,max=100,dive,min=1"`
	Action    string `json:"action" validate:"required,oneof=add remove"`
}

// BatchFavoritesResult counts what a batch favorite request changed.
type BatchFavoritesResult struct {
	Added   int `json:"added_count"`
	Skipped int `json:"skipped_count"`
	Removed int `json:"removed_count"`
}

type Pagination struct {
	Total       int `json:"total"`
	PageSize    int `json:"page_size"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

type SharedRecipes struct {
	Recipes    []*Recipe  `json:"recipes"`
	Pagination Pagination `json:"pagination"`
}
