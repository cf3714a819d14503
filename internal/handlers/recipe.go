package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/gitCarrot/OrchAI-sub000/internal/apperr"
	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/service"
)

type RecipeHandler struct {
	svc       *service.Service
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewRecipeHandler(svc *service.Service, logger *logrus.Logger) *RecipeHandler {
	return &RecipeHandler{
		svc:       svc,
		validator: models.NewValidator(),
		logger:    logger,
	}
}

func (h *RecipeHandler) GetRecipes(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}

	recipes, err := h.svc.ListRecipes(c.Request.Context(), ident)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}

	var req models.CreateRecipeRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}

	recipe, err := h.svc.CreateRecipe(c.Request.Context(), ident, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "recipeId")
	if !ok {
		return
	}

	recipe, err := h.svc.GetRecipe(c.Request.Context(), ident, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "recipeId")
	if !ok {
		return
	}

	var req models.UpdateRecipeRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}

	recipe, err := h.svc.UpdateRecipe(c.Request.Context(), ident, id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "recipeId")
	if !ok {
		return
	}

	if err := h.svc.DeleteRecipe(c.Request.Context(), ident, id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Recipe deleted successfully"})
}

func (h *RecipeHandler) ShareRecipe(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "recipeId")
	if !ok {
		return
	}

	var req models.ShareRecipeRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}

	recipe, err := h.svc.ShareRecipe(c.Request.Context(), ident, id, *req.IsPublic)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, recipe)
}

// AddFavorite and RemoveFavorite answer with the recipe's new favorite state.
func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.setFavorite(c, true)
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.setFavorite(c, false)
}

func (h *RecipeHandler) setFavorite(c *gin.Context, favorite bool) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "recipeId")
	if !ok {
		return
	}

	recipe, err := h.svc.SetFavorite(c.Request.Context(), ident, id, favorite)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recipe_id":      recipe.ID,
		"is_favorited":   recipe.IsFavorited,
		"favorite_count": recipe.FavoriteCount,
	})
}

func (h *RecipeHandler) GetFavoriteRecipes(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}

	recipes, err := h.svc.ListFavoriteRecipes(c.Request.Context(), ident)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

func (h *RecipeHandler) BatchFavorites(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}

	var req models.BatchFavoritesRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}

	result, err := h.svc.BatchFavorites(c.Request.Context(), ident, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSharedRecipes pages through public recipes with ?page=N, starting at 1.
func (h *RecipeHandler) GetSharedRecipes(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, h.logger, apperr.Validation("page must be a positive integer"))
			return
		}
		page = n
	}

	shared, err := h.svc.ListSharedRecipes(c.Request.Context(), ident, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, shared)
}
