package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/gitCarrot/OrchAI-sub000/internal/apperr"
	"github.com/gitCarrot/OrchAI-sub000/internal/auth"
	"github.com/gitCarrot/OrchAI-sub000/internal/i18n"
)

// respondError writes {"error": ...} with the status of err's kind.
// Internal failures are logged with the request context and never leak
// their cause to the client.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"request_id": c.GetString("request_id"),
		}).WithError(err).Error("Request failed")
	}
	c.JSON(apperr.HTTPStatus(kind), gin.H{
		"error": i18n.Message(err, c.GetHeader("Accept-Language")),
	})
}

// currentIdentity returns the caller set by the auth middleware or writes 401.
func currentIdentity(c *gin.Context, logger *logrus.Logger) (auth.Identity, bool) {
	ident, exists := auth.GetIdentity(c)
	if !exists || ident.UserID == "" {
		respondError(c, logger, apperr.ErrUnauthenticated)
		return auth.Identity{}, false
	}
	return ident, true
}

// paramID parses a positive integer path parameter or writes 400.
func paramID(c *gin.Context, logger *logrus.Logger, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		respondError(c, logger, apperr.New(apperr.KindValidation, apperr.CodeInvalidID, "invalid "+name))
		return 0, false
	}
	return id, true
}

// bindJSON decodes and validates the body into req or writes 400.
func bindJSON(c *gin.Context, logger *logrus.Logger, v *validator.Validate, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, logger, apperr.Validation("Invalid request body"))
		return false
	}
	if err := v.Struct(req); err != nil {
		respondError(c, logger, apperr.Validation(err.Error()))
		return false
	}
	return true
}
