package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/orgforge/orgforge/internal/config"
	identitydomain "github.com/orgforge/orgforge/internal/identity/domain"
	invitationdomain "github.com/orgforge/orgforge/internal/invitation/domain"
	organizationdomain "github.com/orgforge/orgforge/internal/organization/domain"
	"github.com/orgforge/orgforge/internal/orguser/domain"
	"github.com/orgforge/orgforge/internal/providers/email"
	"go.uber.org/zap"
)

type service struct {
	repo    domain.Repository
	invites invitationdomain.Service
	mailer  email.Provider
	policy  *config.PolicyHolder
	log     *zap.Logger
}

func NewService(
	repo domain.Repository,
	invites invitationdomain.Service,
	mailer email.Provider,
	policy *config.PolicyHolder,
	log *zap.Logger,
) domain.Service {
	return &service{
		repo:    repo,
		invites: invites,
		mailer:  mailer,
		policy:  policy,
		log:     log,
	}
}

func (s *service) ListUsers(ctx context.Context, orgID snowflake.ID, emails []string) ([]identitydomain.User, error) {
	filter := normalizeEmails(emails)
	return s.repo.ListUsers(ctx, orgID, filter)
}

func (s *service) AddUser(ctx context.Context, org domain.OrgRef, req domain.CreateUserRequest) (*identitydomain.User, error) {
	email := strings.TrimSpace(req.Email)
	if !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}
	role := strings.ToUpper(strings.TrimSpace(req.OrganizationRole))
	if role == "" {
		role = organizationdomain.RoleMember
	}
	if !organizationdomain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}

	existing, err := s.repo.FindByEmail(ctx, org.ID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailConflict
	}

	username := strings.TrimSpace(req.Username)
	if username != "" {
		if err := s.checkUsernameConflicts(ctx, org.ID, username, 0); err != nil {
			return nil, err
		}
	}

	usernameOrEmail := email
	if username != "" {
		usernameOrEmail = username
	}

	created, err := s.invites.CreateUsersConnectToOrg(ctx, invitationdomain.BatchRequest{
		Invitations: []invitationdomain.Invite{
			{UsernameOrEmail: usernameOrEmail, Email: email, Role: role},
		},
		TeamID:                org.ID,
		IsOrg:                 true,
		ParentID:              nil,
		AutoAcceptEmailDomain: org.AutoAcceptEmailDomain,
		ConnectInfo: map[string]invitationdomain.ConnectInfo{
			usernameOrEmail: {OrgID: org.ID, AutoAccept: req.AutoAccept},
		},
	})
	if err != nil {
		return nil, err
	}
	invited := created[0]

	// Fields the invitation routine does not set itself.
	user, err := s.repo.UpdateUser(ctx, org.ID, invited.ID, patchFields(domain.UpdateUserRequest{
		Name:      optional(req.Name),
		Locale:    optional(req.Locale),
		TimeZone:  optional(req.TimeZone),
		AvatarURL: optional(req.AvatarURL),
	}))
	if err != nil {
		return nil, err
	}

	s.sendOnboardingEmail(ctx, org, user)

	return user, nil
}

func (s *service) UpdateUser(ctx context.Context, orgID, userID snowflake.ID, patch domain.UpdateUserRequest) (*identitydomain.User, error) {
	if patch.Username != nil {
		if err := s.checkUsernameConflicts(ctx, orgID, *patch.Username, userID); err != nil {
			return nil, err
		}
	}

	return s.repo.UpdateUser(ctx, orgID, userID, patchFields(patch))
}

func (s *service) RemoveUser(ctx context.Context, orgID, userID snowflake.ID) (*identitydomain.User, error) {
	return s.repo.DeleteUser(ctx, orgID, userID)
}

// checkUsernameConflicts is a fast-path check; the scoped unique index
// remains the source of truth under concurrent writes.
func (s *service) checkUsernameConflicts(ctx context.Context, orgID snowflake.ID, username string, excludeUserID snowflake.ID) error {
	if s.policy.Get().IsReservedUsername(username) {
		return domain.ErrReservedUsername
	}

	taken, err := s.repo.FindByUsername(ctx, orgID, username, excludeUserID)
	if err != nil {
		return err
	}
	if taken != nil {
		return domain.ErrUsernameConflict
	}
	return nil
}

// sendOnboardingEmail is best-effort: a delivery failure never rolls back
// the membership that was already committed.
func (s *service) sendOnboardingEmail(ctx context.Context, org domain.OrgRef, user *identitydomain.User) {
	err := s.mailer.SendTemplate(ctx, []string{user.Email}, "invite_member", map[string]interface{}{
		"org_name": org.Name,
		"org_id":   org.ID.String(),
		"username": user.Username,
		"locale":   user.Locale,
	})
	if err != nil {
		s.log.Warn("failed to send organization invite email",
			zap.String("org_id", org.ID.String()),
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
	}
}

func normalizeEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, email := range emails {
		normalized := strings.ToLower(strings.TrimSpace(email))
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func patchFields(patch domain.UpdateUserRequest) map[string]any {
	fields := map[string]any{}
	if patch.Username != nil {
		fields["username"] = strings.TrimSpace(*patch.Username)
	}
	if patch.Name != nil {
		fields["name"] = *patch.Name
	}
	if patch.Locale != nil {
		fields["locale"] = *patch.Locale
	}
	if patch.TimeZone != nil {
		fields["time_zone"] = *patch.TimeZone
	}
	if patch.AvatarURL != nil {
		fields["avatar_url"] = *patch.AvatarURL
	}
	return fields
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
