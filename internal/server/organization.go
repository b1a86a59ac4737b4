package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	organizationdomain "github.com/orgforge/orgforge/internal/organization/domain"
)

type provisionOwnerRequest struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type provisionOrganizationRequest struct {
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	LogoURL         string `json:"logo_url"`
	IsConfigured    bool   `json:"is_organization_configured"`
	IsAdminReviewed bool   `json:"is_admin_reviewed"`
	AutoAcceptEmail string `json:"auto_accept_email"`
	Seats           *int   `json:"seats"`
	PricePerSeat    *int   `json:"price_per_seat"`
	IsPlatform      bool   `json:"is_platform"`
	BillingPeriod   string `json:"billing_period"`

	Owner provisionOwnerRequest `json:"owner"`
}

// ProvisionOrganization creates a tenant with its first owner. When the
// owner carries an id the account already exists and only gains an
// org-scoped profile; otherwise the owner account is created too.
func (s *Server) ProvisionOrganization(c *gin.Context) {
	var req provisionOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	data := organizationdomain.OrgData{
		Name:                        strings.TrimSpace(req.Name),
		Slug:                        strings.TrimSpace(req.Slug),
		LogoURL:                     strings.TrimSpace(req.LogoURL),
		IsOrganizationConfigured:    req.IsConfigured,
		IsOrganizationAdminReviewed: req.IsAdminReviewed,
		AutoAcceptEmail:             strings.TrimSpace(req.AutoAcceptEmail),
		Seats:                       req.Seats,
		PricePerSeat:                req.PricePerSeat,
		IsPlatform:                  req.IsPlatform,
		BillingPeriod:               organizationdomain.BillingPeriod(strings.ToUpper(strings.TrimSpace(req.BillingPeriod))),
	}

	var (
		result *organizationdomain.ProvisionResult
		flow   string
		err    error
	)
	if ownerID := strings.TrimSpace(req.Owner.ID); ownerID != "" {
		id, parseErr := snowflake.ParseString(ownerID)
		if parseErr != nil || id == 0 {
			AbortWithError(c, newValidationError("owner.id", "invalid_owner", "invalid owner id"))
			return
		}
		flow = "existing_owner"
		result, err = s.provisioner.CreateWithExistingOwner(c.Request.Context(), data, organizationdomain.ExistingOwner{
			ID:             id,
			Email:          strings.TrimSpace(req.Owner.Email),
			NonOrgUsername: strings.TrimSpace(req.Owner.Username),
		})
	} else {
		flow = "new_owner"
		result, err = s.provisioner.CreateWithNewOwner(c.Request.Context(), data, organizationdomain.NewOwner{
			Email: strings.TrimSpace(req.Owner.Email),
		})
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordOrgProvisioned(c.Request.Context(), flow)

	c.JSON(http.StatusCreated, result)
}

func (s *Server) GetOrganization(c *gin.Context) {
	orgID, ok := s.orgIDFromPath(c)
	if !ok {
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

	c.JSON(http.StatusOK, gin.H{"organization": org})
}

// LookupOrgByEmailDomain finds the single organization whose auto-accept
// domain matches the given email. Two matches is data corruption and
// surfaces as a server error, never a silent pick.
func (s *Server) LookupOrgByEmailDomain(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" || !strings.Contains(email, "@") {
		AbortWithError(c, newValidationError("email", "invalid_email", "invalid email"))
		return
	}

	org, err := s.provisioner.FindUniqueByAutoAcceptDomain(c.Request.Context(), email)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"organization": org})
}
