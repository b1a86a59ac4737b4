// Package domain contains types for membership onboarding.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/orgforge/orgforge/internal/identity/domain"
)

// OrgRef is the slice of the organization the onboarding service needs.
type OrgRef struct {
	ID   snowflake.ID
	Name string
	// AutoAcceptEmailDomain feeds username derivation for email
	// identifiers; matching addresses drop the domain suffix.
	AutoAcceptEmailDomain string
}

// CreateUserRequest describes a member being added to an organization.
// Username is optional; when present it wins over the email as the
// invite identifier.
type CreateUserRequest struct {
	Email            string
	Username         string
	OrganizationRole string
	AutoAccept       bool

	Name      string
	Locale    string
	TimeZone  string
	AvatarURL string
}

// UpdateUserRequest is a field-level patch; nil fields are left untouched.
type UpdateUserRequest struct {
	Username  *string
	Name      *string
	Locale    *string
	TimeZone  *string
	AvatarURL *string
}

type Service interface {
	// ListUsers returns the organization's members, optionally filtered
	// to the given emails. An empty list means no filter.
	ListUsers(ctx context.Context, orgID snowflake.ID, emails []string) ([]identitydomain.User, error)
	AddUser(ctx context.Context, org OrgRef, req CreateUserRequest) (*identitydomain.User, error)
	UpdateUser(ctx context.Context, orgID, userID snowflake.ID, patch UpdateUserRequest) (*identitydomain.User, error)
	RemoveUser(ctx context.Context, orgID, userID snowflake.ID) (*identitydomain.User, error)
}

var (
	ErrEmailConflict    = errors.New("a user already exists with that email")
	ErrUsernameConflict = errors.New("username is already taken")
	ErrReservedUsername = errors.New("username is reserved")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidRole      = errors.New("invalid_role")
	ErrUserNotFound     = errors.New("organization user not found")
)
