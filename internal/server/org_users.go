package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	organizationdomain "github.com/orgforge/orgforge/internal/organization/domain"
	orguserdomain "github.com/orgforge/orgforge/internal/orguser/domain"
	"go.uber.org/zap"
)

type addOrgUserRequest struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	AutoAccept bool   `json:"auto_accept"`
	Name       string `json:"name"`
	Locale     string `json:"locale"`
	TimeZone   string `json:"time_zone"`
	AvatarURL  string `json:"avatar_url"`
}

type updateOrgUserRequest struct {
	Username  *string `json:"username"`
	Name      *string `json:"name"`
	Locale    *string `json:"locale"`
	TimeZone  *string `json:"time_zone"`
	AvatarURL *string `json:"avatar_url"`
}

func (s *Server) ListOrgUsers(c *gin.Context) {
	orgID, ok := s.orgIDFromPath(c)
	if !ok {
		return
	}

	var emails []string
	if raw := strings.TrimSpace(c.Query("emails")); raw != "" {
		emails = strings.Split(raw, ",")
	}

	users, err := s.orgUserSvc.ListUsers(c.Request.Context(), orgID, emails)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (s *Server) AddOrgUser(c *gin.Context) {
	orgID, ok := s.orgIDFromPath(c)
	if !ok {
		return
	}

	var req addOrgUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	org, err := s.provisioner.FindByIDIncludeSettings(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if org == nil {
		AbortWithError(c, organizationdomain.ErrNotFound)
		return
	}
	autoAcceptDomain := ""
	if org.Settings != nil {
		autoAcceptDomain = org.Settings.OrgAutoAcceptEmail
	}

	identifier := strings.TrimSpace(req.Username)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	token, acquired, err := s.inviteLimiter.TryLockIdentifier(c.Request.Context(), orgID.String(), identifier)
	if err != nil {
		s.log.Warn("invite identifier lock unavailable", zap.Error(err))
	} else if !acquired {
		// Another invite for the same identifier is in flight.
		AbortWithError(c, ErrConflict)
		return
	} else {
		defer func() {
			if releaseErr := s.inviteLimiter.ReleaseIdentifier(c.Request.Context(), orgID.String(), identifier, token); releaseErr != nil {
				s.log.Warn("invite identifier unlock failed", zap.Error(releaseErr))
			}
		}()
	}

	user, err := s.orgUserSvc.AddUser(c.Request.Context(), orguserdomain.OrgRef{
		ID:                    org.ID,
		Name:                  org.Name,
		AutoAcceptEmailDomain: autoAcceptDomain,
	}, orguserdomain.CreateUserRequest{
		Email:            strings.TrimSpace(req.Email),
		Username:         strings.TrimSpace(req.Username),
		OrganizationRole: req.Role,
		AutoAccept:       req.AutoAccept,
		Name:             strings.TrimSpace(req.Name),
		Locale:           strings.TrimSpace(req.Locale),
		TimeZone:         strings.TrimSpace(req.TimeZone),
		AvatarURL:        strings.TrimSpace(req.AvatarURL),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordMemberConnected(c.Request.Context(), org.ID.String(), "created")

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (s *Server) UpdateOrgUser(c *gin.Context) {
	orgID, ok := s.orgIDFromPath(c)
	if !ok {
		return
	}
	userID, ok := s.userIDFromPath(c)
	if !ok {
		return
	}

	var req updateOrgUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.orgUserSvc.UpdateUser(c.Request.Context(), orgID, userID, orguserdomain.UpdateUserRequest{
		Username:  req.Username,
		Name:      req.Name,
		Locale:    req.Locale,
		TimeZone:  req.TimeZone,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) RemoveOrgUser(c *gin.Context) {
	orgID, ok := s.orgIDFromPath(c)
	if !ok {
		return
	}
	userID, ok := s.userIDFromPath(c)
	if !ok {
		return
	}

	user, err := s.orgUserSvc.RemoveUser(c.Request.Context(), orgID, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
