package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/service"
)

type CategoryHandler struct {
	svc       *service.Service
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewCategoryHandler(svc *service.Service, logger *logrus.Logger) *CategoryHandler {
	return &CategoryHandler{
		svc:       svc,
		validator: models.NewValidator(),
		logger:    logger,
	}
}

func (h *CategoryHandler) GetCategories(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "id")
	if !ok {
		return
	}

	categories, err := h.svc.ListCategories(c.Request.Context(), ident, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// AttachCategory links an existing category by id, or creates a custom one
// from the translations in the body.
func (h *CategoryHandler) AttachCategory(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "id")
	if !ok {
		return
	}

	var req models.AttachCategoryRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}

	link, err := h.svc.AttachCategory(c.Request.Context(), ident, id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, link)
}

// AttachCategories is all-or-nothing: one invalid item rolls back the batch.
func (h *CategoryHandler) AttachCategories(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "id")
	if !ok {
		return
	}

	var req models.AttachCategoriesRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}

	links, err := h.svc.AttachCategories(c.Request.Context(), ident, id, req.Categories)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"categories": links})
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "id")
	if !ok {
		return
	}
	categoryID, ok := paramID(c, h.logger, "categoryId")
	if !ok {
		return
	}

	var req models.UpdateCategoryRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}

	category, err := h.svc.UpdateCategory(c.Request.Context(), ident, id, categoryID, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) DetachCategory(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "id")
	if !ok {
		return
	}
	categoryID, ok := paramID(c, h.logger, "categoryId")
	if !ok {
		return
	}

	if err := h.svc.DetachCategory(c.Request.Context(), ident, id, categoryID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Category removed successfully"})
}
