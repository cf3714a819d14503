package repository

import (
	"context"
	"errors"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
)

// ErrUniqueViolation is returned when an insert or update would break one of
// the store's uniqueness rules: the single virtual refrigerator per owner,
// the single live invitation per (refrigerator, email), or a duplicate link.
var ErrUniqueViolation = errors.New("unique constraint violation")

// Lookups return (nil, nil) when the row does not exist.

// UserRepository defines the interface for user data operations
type UserRepository interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	// EnsureUser inserts the user if missing and refreshes a non-empty email.
	EnsureUser(ctx context.Context, id, email string) (*models.User, error)
}

// RefrigeratorRepository defines the interface for refrigerator data operations
type RefrigeratorRepository interface {
	// LockOwner serializes refrigerator creation for one owner until the
	// surrounding transaction ends.
	LockOwner(ctx context.Context, ownerID string) error
	CreateRefrigerator(ctx context.Context, r *models.Refrigerator) (*models.Refrigerator, error)
	GetRefrigerator(ctx context.Context, id int) (*models.Refrigerator, error)
	CountRefrigeratorsByType(ctx context.Context, ownerID string, t models.RefrigeratorType) (int, error)
	ListOwnedRefrigerators(ctx context.Context, ownerID string) ([]*models.Refrigerator, error)
	// ListSharedRefrigerators returns refrigerators with an accepted
	// membership for email, Role and OwnerEmail filled in.
	ListSharedRefrigerators(ctx context.Context, email string) ([]*models.Refrigerator, error)
	UpdateRefrigerator(ctx context.Context, r *models.Refrigerator) (*models.Refrigerator, error)
	DeleteRefrigerator(ctx context.Context, id int) error
	SetRefrigeratorShared(ctx context.Context, id int, shared bool) error
}

// CategoryRepository defines the interface for categories and their links
type CategoryRepository interface {
	CreateCategory(ctx context.Context, c *models.Category) (*models.Category, error)
	GetCategory(ctx context.Context, id int) (*models.Category, error)
	// LockCategory locks the category row until the surrounding transaction
	// ends. A missing row is not an error.
	LockCategory(ctx context.Context, id int) error
	// UpdateCategory writes the icon and replaces the translation set.
	UpdateCategory(ctx context.Context, c *models.Category) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int) error

	CreateRefrigeratorCategory(ctx context.Context, refrigeratorID, categoryID int) (*models.RefrigeratorCategory, error)
	GetRefrigeratorCategory(ctx context.Context, refrigeratorID, categoryID int) (*models.RefrigeratorCategory, error)
	GetRefrigeratorCategoryByID(ctx context.Context, id int) (*models.RefrigeratorCategory, error)
	// ListRefrigeratorCategories returns links with Category and Ingredients filled in.
	ListRefrigeratorCategories(ctx context.Context, refrigeratorID int) ([]*models.RefrigeratorCategory, error)
	DeleteRefrigeratorCategory(ctx context.Context, id int) error
	// CountCategoryLinks counts links to categoryID across all refrigerators.
	CountCategoryLinks(ctx context.Context, categoryID int) (int, error)
}

// IngredientRepository defines the interface for ingredient data operations.
// Every lookup is scoped by the owning link.
type IngredientRepository interface {
	CreateIngredient(ctx context.Context, i *models.Ingredient) (*models.Ingredient, error)
	GetIngredient(ctx context.Context, id, refrigeratorCategoryID int) (*models.Ingredient, error)
	ListIngredients(ctx context.Context, refrigeratorCategoryID int) ([]*models.Ingredient, error)
	UpdateIngredient(ctx context.Context, i *models.Ingredient) (*models.Ingredient, error)
	// DeleteIngredient reports whether a row was removed.
	DeleteIngredient(ctx context.Context, id, refrigeratorCategoryID int) (bool, error)
}

// InvitationRepository defines the interface for shared_refrigerators rows
type InvitationRepository interface {
	CreateInvitation(ctx context.Context, inv *models.Invitation) (*models.Invitation, error)
	GetInvitation(ctx context.Context, id int) (*models.Invitation, error)
	// GetInvitationForUpdate locks the row until the transaction ends.
	GetInvitationForUpdate(ctx context.Context, id int) (*models.Invitation, error)
	// FindLiveInvitation returns the pending or accepted row for the pair.
	FindLiveInvitation(ctx context.Context, refrigeratorID int, email string) (*models.Invitation, error)
	FindAcceptedMembership(ctx context.Context, refrigeratorID int, email string) (*models.Invitation, error)
	UpdateInvitationStatus(ctx context.Context, id int, status models.InvitationStatus) (*models.Invitation, error)
	UpdateInvitationRole(ctx context.Context, id int, role models.Role) (*models.Invitation, error)
	DeleteInvitation(ctx context.Context, id int) error
	// ListReceivedInvitations returns every invitation addressed to email,
	// newest first, with RefrigeratorName and OwnerEmail filled in.
	ListReceivedInvitations(ctx context.Context, email string) ([]*models.Invitation, error)
	// ListSentInvitations returns every invitation on refrigerators owned by
	// ownerID, newest first, with RefrigeratorName filled in.
	ListSentInvitations(ctx context.Context, ownerID string) ([]*models.Invitation, error)
	// ListMembers returns pending and accepted rows of a refrigerator.
	ListMembers(ctx context.Context, refrigeratorID int) ([]*models.Invitation, error)
	CountAcceptedMembers(ctx context.Context, refrigeratorID int) (int, error)
}

// RecipeRepository defines the interface for recipes and their favorites.
// Returned recipes carry Translations and Tags; IsFavorited is left unset.
type RecipeRepository interface {
	CreateRecipe(ctx context.Context, r *models.Recipe) (*models.Recipe, error)
	GetRecipe(ctx context.Context, id int) (*models.Recipe, error)
	// GetRecipeForUpdate locks the recipe row until the transaction ends.
	GetRecipeForUpdate(ctx context.Context, id int) (*models.Recipe, error)
	// ListRecipesByOwner returns the owner's recipes, newest first.
	ListRecipesByOwner(ctx context.Context, ownerID string) ([]*models.Recipe, error)
	// ListPublicRecipes returns one page of public recipes, newest first.
	ListPublicRecipes(ctx context.Context, limit, offset int) ([]*models.Recipe, error)
	CountPublicRecipes(ctx context.Context) (int, error)
	// ListFavoriteRecipes returns the recipes userID favorited, newest first.
	ListFavoriteRecipes(ctx context.Context, userID string) ([]*models.Recipe, error)
	// UpdateRecipe writes the share flag and replaces translations and tags.
	UpdateRecipe(ctx context.Context, r *models.Recipe) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, id int) error

	// AddFavorite reports whether a new favorite row was inserted.
	AddFavorite(ctx context.Context, recipeID int, userID string) (bool, error)
	// RemoveFavorite reports whether a favorite row was removed.
	RemoveFavorite(ctx context.Context, recipeID int, userID string) (bool, error)
	// AdjustFavoriteCount adds delta to favorite_count, never going below zero.
	AdjustFavoriteCount(ctx context.Context, recipeID, delta int) error
	// FavoritedRecipeIDs reports which of recipeIDs userID has favorited.
	FavoritedRecipeIDs(ctx context.Context, userID string, recipeIDs []int) (map[int]bool, error)
}

// Queries is everything the services can do inside or outside a transaction.
type Queries interface {
	UserRepository
	RefrigeratorRepository
	CategoryRepository
	IngredientRepository
	InvitationRepository
	RecipeRepository
}

// Store is the transactional persistence gateway.
type Store interface {
	Queries
	// WithTx runs fn in one transaction. It commits when fn returns nil and
	// rolls back otherwise.
	WithTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
}
