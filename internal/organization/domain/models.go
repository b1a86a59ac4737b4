// Package domain contains persistence models for the organization service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

type BillingPeriod string

const (
	BillingPeriodMonthly  BillingPeriod = "MONTHLY"
	BillingPeriodAnnually BillingPeriod = "ANNUALLY"
)

// Metadata carries billing attributes the organization service persists
// but never interprets. It is stored as a JSON column so downstream
// billing workflows can extend it without schema changes.
type Metadata struct {
	// RequestedSlug holds the slug pending billing approval while
	// team billing is enabled; empty once the slug is live.
	RequestedSlug   string        `json:"requestedSlug,omitempty"`
	OrgSeats        *int          `json:"orgSeats"`
	OrgPricePerSeat *int          `json:"orgPricePerSeat"`
	IsPlatform      bool          `json:"isPlatform"`
	BillingPeriod   BillingPeriod `json:"billingPeriod,omitempty"`
}

// Organization represents a team record flagged as a tenant container.
type Organization struct {
	ID             snowflake.ID          `gorm:"primaryKey" json:"id"`
	Name           string                `gorm:"type:text;not null" json:"name"`
	Slug           *string               `gorm:"type:text;uniqueIndex:ux_organizations_slug" json:"slug"`
	LogoURL        string                `gorm:"column:logo_url;type:text" json:"logo_url"`
	IsOrganization bool                  `gorm:"column:is_organization;not null" json:"is_organization"`
	IsPlatform     bool                  `gorm:"column:is_platform;not null" json:"is_platform"`
	Metadata       Metadata              `gorm:"serializer:json" json:"metadata"`
	Settings       *OrganizationSettings `gorm:"foreignKey:OrganizationID" json:"settings,omitempty"`
	CreatedAt      time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// OrganizationSettings holds the review/verification state and the
// auto-accept email domain. A non-empty domain is unique system-wide.
type OrganizationSettings struct {
	ID                       snowflake.ID `gorm:"primaryKey" json:"id"`
	OrganizationID           snowflake.ID `gorm:"not null;uniqueIndex" json:"organization_id"`
	IsAdminReviewed          bool         `gorm:"column:is_admin_reviewed;not null" json:"is_admin_reviewed"`
	IsOrganizationVerified   bool         `gorm:"column:is_organization_verified;not null" json:"is_organization_verified"`
	IsOrganizationConfigured bool         `gorm:"column:is_organization_configured;not null" json:"is_organization_configured"`
	OrgAutoAcceptEmail       string       `gorm:"column:org_auto_accept_email;type:text;index" json:"org_auto_accept_email"`
	CreatedAt                time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (OrganizationSettings) TableName() string { return "organization_settings" }

// Membership joins a user to an organization with a role and an
// acceptance flag. The bootstrap OWNER row is always accepted.
type Membership struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TeamID    snowflake.ID `gorm:"column:team_id;not null;index;uniqueIndex:ux_memberships_team_user,priority:1" json:"team_id"`
	UserID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_memberships_team_user,priority:2" json:"user_id"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	Accepted  bool         `gorm:"not null" json:"accepted"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Membership) TableName() string { return "memberships" }

// ValidRole reports whether role is one of the membership roles.
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	default:
		return false
	}
}
