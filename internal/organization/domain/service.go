package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/orgforge/orgforge/internal/identity/domain"
	profiledomain "github.com/orgforge/orgforge/internal/profile/domain"
)

// Provisioner establishes new tenants together with their first owner.
type Provisioner interface {
	CreateWithExistingOwner(ctx context.Context, data OrgData, owner ExistingOwner) (*ProvisionResult, error)
	CreateWithNewOwner(ctx context.Context, data OrgData, owner NewOwner) (*ProvisionResult, error)
	FindByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	FindByIDIncludeSettings(ctx context.Context, id snowflake.ID) (*Organization, error)
	// FindUniqueByAutoAcceptDomain returns the single organization whose
	// auto-accept domain matches the email's domain, nil when none does,
	// and ErrAutoAcceptDomainIntegrity when more than one does.
	FindUniqueByAutoAcceptDomain(ctx context.Context, email string) (*Organization, error)
}

// OrgData is the tenant shape supplied by provisioning callers.
type OrgData struct {
	Name                        string
	Slug                        string
	LogoURL                     string
	IsOrganizationConfigured    bool
	IsOrganizationAdminReviewed bool
	AutoAcceptEmail             string
	Seats                       *int
	PricePerSeat                *int
	IsPlatform                  bool
	BillingPeriod               BillingPeriod
}

// ExistingOwner is a user that already exists outside the new tenant.
type ExistingOwner struct {
	ID             snowflake.ID
	Email          string
	NonOrgUsername string
}

// NewOwner is an owner that does not exist yet; only the email is known.
type NewOwner struct {
	Email string
}

// OwnerProfile is the tenant-scoped identity produced for the owner.
type OwnerProfile struct {
	Username string `json:"username"`
}

type ProvisionResult struct {
	Organization *Organization          `json:"organization"`
	// OrgOwner is set when the owner account was created during provisioning.
	OrgOwner     *identitydomain.User   `json:"org_owner,omitempty"`
	Profile      *profiledomain.Profile `json:"-"`
	OwnerProfile OwnerProfile           `json:"owner_profile"`
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidSlug  = errors.New("invalid_slug")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrSlugTaken    = errors.New("slug_taken")
	ErrNotFound     = errors.New("organization_not_found")

	// ErrAutoAcceptDomainTaken is the recoverable conflict surfaced by
	// the store's uniqueness constraint during provisioning.
	ErrAutoAcceptDomainTaken = errors.New("auto_accept_domain_taken")

	// ErrAutoAcceptDomainIntegrity indicates store-level corruption: two
	// organizations share the same auto-accept domain. Never resolved by
	// picking one.
	ErrAutoAcceptDomainIntegrity = errors.New("multiple organizations share the same auto accept email domain")
)
