package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/service"
)

// SharingHandler serves invitations and refrigerator membership.
type SharingHandler struct {
	svc       *service.Service
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewSharingHandler(svc *service.Service, logger *logrus.Logger) *SharingHandler {
	return &SharingHandler{
		svc:       svc,
		validator: models.NewValidator(),
		logger:    logger,
	}
}

func (h *SharingHandler) ShareRefrigerator(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "id")
	if !ok {
		return
	}

	var req models.ShareRefrigeratorRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}

	invitation, err := h.svc.Invite(c.Request.Context(), ident, id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, invitation)
}

func (h *SharingHandler) GetReceivedInvitations(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}

	invitations, err := h.svc.ListReceivedInvitations(c.Request.Context(), ident)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}

func (h *SharingHandler) GetSentInvitations(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}

	invitations, err := h.svc.ListSentInvitations(c.Request.Context(), ident)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": invitations})
}

// RespondToInvitation accepts or rejects a pending invitation addressed to
// the caller's verified email.
func (h *SharingHandler) RespondToInvitation(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	invitationID, ok := paramID(c, h.logger, "invitationId")
	if !ok {
		return
	}

	var req models.RespondInvitationRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}

	invitation, err := h.svc.RespondToInvitation(c.Request.Context(), ident, invitationID, req.Action)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, invitation)
}

func (h *SharingHandler) CancelInvitation(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	invitationID, ok := paramID(c, h.logger, "invitationId")
	if !ok {
		return
	}

	if err := h.svc.CancelInvitation(c.Request.Context(), ident, invitationID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invitation cancelled successfully"})
}

func (h *SharingHandler) GetMembers(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "id")
	if !ok {
		return
	}

	members, err := h.svc.ListMembers(c.Request.Context(), ident, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (h *SharingHandler) UpdateMemberRole(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "id")
	if !ok {
		return
	}
	memberID, ok := paramID(c, h.logger, "memberId")
	if !ok {
		return
	}

	var req models.UpdateMemberRoleRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}

	member, err := h.svc.UpdateMemberRole(c.Request.Context(), ident, id, memberID, models.Role(req.Role))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, member)
}

func (h *SharingHandler) RemoveMember(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "id")
	if !ok {
		return
	}
	memberID, ok := paramID(c, h.logger, "memberId")
	if !ok {
		return
	}

	if err := h.svc.RemoveMember(c.Request.Context(), ident, id, memberID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
}
