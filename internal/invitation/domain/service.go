package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/orgforge/orgforge/internal/identity/domain"
	"gorm.io/gorm"
)

// Invite is one entry of a batch: the identifier is a username when the
// caller picked one explicitly, otherwise the invitee's email.
type Invite struct {
	UsernameOrEmail string
	// Email backs identifiers that are not themselves an address.
	Email string
	Role  string
}

// ConnectInfo tells the routine how an identifier binds to the target
// organization and whether the membership starts accepted.
type ConnectInfo struct {
	OrgID      snowflake.ID
	AutoAccept bool
}

// BatchRequest mirrors the invite call the onboarding service delegates to.
type BatchRequest struct {
	Invitations           []Invite
	TeamID                snowflake.ID
	IsOrg                 bool
	ParentID              *snowflake.ID
	AutoAcceptEmailDomain string
	ConnectInfo           map[string]ConnectInfo
}

type VerifyRequest struct {
	Code     string
	Password string
}

type Service interface {
	WithTx(tx *gorm.DB) Service
	// CreateUsersConnectToOrg creates brand-new users or connects existing
	// ones to the organization, one membership per invite, in input order.
	CreateUsersConnectToOrg(ctx context.Context, req BatchRequest) ([]identitydomain.User, error)
	// Verify redeems an invitation code, accepting the membership and
	// optionally setting the new user's password.
	Verify(ctx context.Context, req VerifyRequest) error
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invitation *Invitation) error
	FindPendingByCode(ctx context.Context, code string) (*Invitation, error)
	MarkCompleted(ctx context.Context, id snowflake.ID) error
	AcceptMembership(ctx context.Context, orgID, userID snowflake.ID) error
}

var (
	ErrInvalidInvite   = errors.New("invalid_invite")
	ErrInviteNotFound  = errors.New("invite_not_found")
	ErrMissingLinkage  = errors.New("missing_org_connect_info")
	ErrInvalidIdentity = errors.New("invalid_invite_identifier")
)
