package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/service"
)

type IngredientHandler struct {
	svc       *service.Service
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewIngredientHandler(svc *service.Service, logger *logrus.Logger) *IngredientHandler {
	return &IngredientHandler{
		svc:       svc,
		validator: models.NewValidator(),
		logger:    logger,
	}
}

// scope reads the refrigerator and category ids every ingredient route carries.
func (h *IngredientHandler) scope(c *gin.Context) (refrigeratorID, categoryID int, ok bool) {
	if refrigeratorID, ok = paramID(c, h.logger, "id"); !ok {
		return 0, 0, false
	}
	if categoryID, ok = paramID(c, h.logger, "categoryId"); !ok {
		return 0, 0, false
	}
	return refrigeratorID, categoryID, true
}

func (h *IngredientHandler) GetIngredients(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	refrigeratorID, categoryID, ok := h.scope(c)
	if !ok {
		return
	}

	ingredients, err := h.svc.ListIngredients(c.Request.Context(), ident, refrigeratorID, categoryID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ingredients": ingredients})
}

func (h *IngredientHandler) CreateIngredient(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	refrigeratorID, categoryID, ok := h.scope(c)
	if !ok {
		return
	}

	var req models.CreateIngredientRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}

	ingredient, err := h.svc.CreateIngredient(c.Request.Context(), ident, refrigeratorID, categoryID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, ingredient)
}

func (h *IngredientHandler) UpdateIngredient(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	refrigeratorID, categoryID, ok := h.scope(c)
	if !ok {
		return
	}
	ingredientID, ok := paramID(c, h.logger, "ingredientId")
	if !ok {
		return
	}

	var req models.UpdateIngredientRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}

	ingredient, err := h.svc.UpdateIngredient(c.Request.Context(), ident, refrigeratorID, categoryID, ingredientID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, ingredient)
}

func (h *IngredientHandler) DeleteIngredient(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	refrigeratorID, categoryID, ok := h.scope(c)
	if !ok {
		return
	}
	ingredientID, ok := paramID(c, h.logger, "ingredientId")
	if !ok {
		return
	}

	if err := h.svc.DeleteIngredient(c.Request.Context(), ident, refrigeratorID, categoryID, ingredientID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ingredient deleted successfully"})
}
