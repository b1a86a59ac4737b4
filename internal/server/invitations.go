package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invitationdomain "github.com/orgforge/orgforge/internal/invitation/domain"
)

type verifyInvitationRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

// VerifyInvitation redeems an invitation code: the pending membership is
// accepted and, when a password is supplied, the account becomes usable
// for direct sign-in.
func (s *Server) VerifyInvitation(c *gin.Context) {
	var req verifyInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		AbortWithError(c, newValidationError("code", "invalid_code", "invitation code is required"))
		return
	}

	if err := s.inviteSvc.Verify(c.Request.Context(), invitationdomain.VerifyRequest{
		Code:     code,
		Password: req.Password,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordInviteVerified(c.Request.Context(), "")

	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
