package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/service"
)

type RefrigeratorHandler struct {
	svc       *service.Service
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewRefrigeratorHandler(svc *service.Service, logger *logrus.Logger) *RefrigeratorHandler {
	return &RefrigeratorHandler{
		svc:       svc,
		validator: models.NewValidator(),
		logger:    logger,
	}
}

func (h *RefrigeratorHandler) GetRefrigerators(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}

	refrigerators, err := h.svc.ListRefrigerators(c.Request.Context(), ident)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"refrigerators": refrigerators})
}

// GetSharedRefrigerators lists refrigerators the caller joined through an
// accepted invitation.
func (h *RefrigeratorHandler) GetSharedRefrigerators(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}

	refrigerators, err := h.svc.ListSharedRefrigerators(c.Request.Context(), ident)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"refrigerators": refrigerators})
}

func (h *RefrigeratorHandler) CreateRefrigerator(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}

	var req models.CreateRefrigeratorRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}

	refrigerator, err := h.svc.CreateRefrigerator(c.Request.Context(), ident, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, refrigerator)
}

func (h *RefrigeratorHandler) GetRefrigerator(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "id")
	if !ok {
		return
	}

	refrigerator, err := h.svc.GetRefrigerator(c.Request.Context(), ident, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, refrigerator)
}

func (h *RefrigeratorHandler) UpdateRefrigerator(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "id")
	if !ok {
		return
	}

	var req models.UpdateRefrigeratorRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}

	refrigerator, err := h.svc.UpdateRefrigerator(c.Request.Context(), ident, id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, refrigerator)
}

func (h *RefrigeratorHandler) DeleteRefrigerator(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteRefrigerator(c.Request.Context(), ident, id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Refrigerator deleted successfully"})
}
