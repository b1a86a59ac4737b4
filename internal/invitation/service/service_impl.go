package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/orgforge/orgforge/internal/clock"
	"github.com/orgforge/orgforge/internal/config"
	identitydomain "github.com/orgforge/orgforge/internal/identity/domain"
	identityservice "github.com/orgforge/orgforge/internal/identity/service"
	"github.com/orgforge/orgforge/internal/invitation/domain"
	organizationdomain "github.com/orgforge/orgforge/internal/organization/domain"
	orgservice "github.com/orgforge/orgforge/internal/organization/service"
	profiledomain "github.com/orgforge/orgforge/internal/profile/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	db        *gorm.DB
	repo      domain.Repository
	users     identitydomain.Repository
	passwords identityservice.Service
	profiles  profiledomain.Service
	orgs      organizationdomain.Repository
	policy    *config.PolicyHolder
	genID     *snowflake.Node
	clk       clock.Clock
	log       *zap.Logger
}

func NewService(
	db *gorm.DB,
	repo domain.Repository,
	users identitydomain.Repository,
	passwords identityservice.Service,
	profiles profiledomain.Service,
	orgs organizationdomain.Repository,
	policy *config.PolicyHolder,
	genID *snowflake.Node,
	clk clock.Clock,
	log *zap.Logger,
) domain.Service {
	return &service{
		db:        db,
		repo:      repo,
		users:     users,
		passwords: passwords,
		profiles:  profiles,
		orgs:      orgs,
		policy:    policy,
		genID:     genID,
		clk:       clk,
		log:       log,
	}
}

func (s *service) WithTx(tx *gorm.DB) domain.Service {
	clone := *s
	clone.repo = s.repo.WithTx(tx)
	clone.users = s.users.WithTx(tx)
	clone.passwords = s.passwords.WithTx(tx)
	clone.profiles = s.profiles.WithTx(tx)
	clone.orgs = s.orgs.WithTx(tx)
	return &clone
}

func (s *service) CreateUsersConnectToOrg(ctx context.Context, req domain.BatchRequest) ([]identitydomain.User, error) {
	if len(req.Invitations) == 0 {
		return nil, domain.ErrInvalidInvite
	}

	var connected []identitydomain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		svc := s.WithTx(tx).(*service)
		for _, invite := range req.Invitations {
			user, err := svc.connectOne(ctx, req, invite)
			if err != nil {
				return err
			}
			connected = append(connected, *user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return connected, nil
}

func (s *service) connectOne(ctx context.Context, req domain.BatchRequest, invite domain.Invite) (*identitydomain.User, error) {
	identifier := strings.TrimSpace(invite.UsernameOrEmail)
	if identifier == "" {
		return nil, domain.ErrInvalidIdentity
	}

	info, ok := req.ConnectInfo[identifier]
	if !ok {
		return nil, domain.ErrMissingLinkage
	}

	role := invite.Role
	if !organizationdomain.ValidRole(role) {
		role = organizationdomain.RoleMember
	}

	email, username := resolveIdentity(identifier, invite.Email, req.AutoAcceptEmailDomain)
	if email == "" {
		return nil, domain.ErrInvalidIdentity
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.connectExisting(ctx, existing, info, role)
	}

	return s.createAndConnect(ctx, email, username, info, role)
}

func (s *service) connectExisting(ctx context.Context, user *identitydomain.User, info domain.ConnectInfo, role string) (*identitydomain.User, error) {
	if _, err := s.profiles.CreateForExistingUser(ctx, profiledomain.ExistingUser{
		ID:              user.ID,
		Email:           user.Email,
		CurrentUsername: user.Username,
	}, info.OrgID); err != nil {
		return nil, err
	}

	if err := s.orgs.AddMembership(ctx, s.membership(info, user.ID, role)); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *service) createAndConnect(ctx context.Context, email, username string, info domain.ConnectInfo, role string) (*identitydomain.User, error) {
	now := s.clk.Now()
	orgID := info.OrgID
	user := &identitydomain.User{
		ID:             s.genID.Generate(),
		Email:          email,
		Username:       username,
		OrganizationID: &orgID,
		Locale:         s.policy.Get().DefaultLocale,
		Role:           identitydomain.RoleUser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.orgs.AddMembership(ctx, s.membership(info, user.ID, role)); err != nil {
		return nil, err
	}

	invitation := &domain.Invitation{
		ID:        s.genID.Generate(),
		OrgID:     info.OrgID,
		UserID:    user.ID,
		Email:     email,
		Role:      role,
		Code:      uuid.NewString(),
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, invitation); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *service) membership(info domain.ConnectInfo, userID snowflake.ID, role string) *organizationdomain.Membership {
	return &organizationdomain.Membership{
		ID:        s.genID.Generate(),
		TeamID:    info.OrgID,
		UserID:    userID,
		Role:      role,
		Accepted:  info.AutoAccept,
		CreatedAt: s.clk.Now(),
	}
}

func (s *service) Verify(ctx context.Context, req domain.VerifyRequest) error {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return domain.ErrInvalidInvite
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		svc := s.WithTx(tx).(*service)

		invitation, err := svc.repo.FindPendingByCode(ctx, code)
		if err != nil {
			return err
		}

		if err := svc.repo.MarkCompleted(ctx, invitation.ID); err != nil {
			return err
		}

		if err := svc.repo.AcceptMembership(ctx, invitation.OrgID, invitation.UserID); err != nil {
			return err
		}

		if req.Password != "" {
			if err := svc.passwords.SetPassword(ctx, invitation.UserID, req.Password); err != nil {
				return err
			}
		}

		s.log.Info("invitation accepted",
			zap.String("org_id", invitation.OrgID.String()),
			zap.String("user_id", invitation.UserID.String()),
		)
		return nil
	})
}

// resolveIdentity maps an invite identifier to the email and tenant-local
// username for a user that may need to be created. Identifiers that are
// not addresses keep the explicit username.
func resolveIdentity(identifier, email, autoAcceptDomain string) (string, string) {
	if strings.Contains(identifier, "@") {
		return strings.ToLower(identifier), orgservice.OrgUsernameFromEmail(identifier, autoAcceptDomain)
	}
	return strings.ToLower(strings.TrimSpace(email)), identifier
}
