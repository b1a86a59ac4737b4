package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	organizationdomain "github.com/orgforge/orgforge/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectOrganization = "organization"
	ObjectOrgUser      = "org_user"
	ObjectInvitation   = "invitation"
)

const (
	ActionOrganizationView      = "organization.view"
	ActionOrganizationProvision = "organization.provision"
	ActionOrganizationUpdate    = "organization.update"

	ActionOrgUserView   = "org_user.view"
	ActionOrgUserCreate = "org_user.create"
	ActionOrgUserUpdate = "org_user.update"
	ActionOrgUserDelete = "org_user.delete"

	ActionInvitationView   = "invitation.view"
	ActionInvitationCreate = "invitation.create"
)

type Params struct {
	fx.In

	Orgs     organizationdomain.Repository
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	orgs     organizationdomain.Repository
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		orgs:     p.Orgs,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, orgID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor, orgID)
	if err != nil {
		return err
	}

	domain := fmt.Sprintf("org:%s", orgID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("org_id", orgID),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, orgID string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", ErrInvalidActor
		}
		parsedOrgID, err := snowflake.ParseString(orgID)
		if err != nil || parsedOrgID == 0 {
			return "", "", ErrInvalidOrganization
		}
		role, err := s.roleForUser(ctx, parsedOrgID, userID)
		if err != nil {
			return "", "", err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), nil
	}
	return "", "", ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (string, error) {
	members, err := s.orgs.ListMemberships(ctx, orgID)
	if err != nil {
		return "", err
	}
	for _, member := range members {
		if member.UserID != userID {
			continue
		}
		role := strings.TrimSpace(member.Role)
		if role == "" {
			break
		}
		return role, nil
	}
	return "", ErrForbidden
}

// ensureGrouping keeps the casbin role binding in step with the
// memberships table, replacing stale bindings when a role changed.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Members can only look around.
		{"role:member", ObjectOrganization, ActionOrganizationView},
		{"role:member", ObjectOrgUser, ActionOrgUserView},

		// Admins manage people.
		{"role:admin", ObjectOrganization, ActionOrganizationView},
		{"role:admin", ObjectOrgUser, ActionOrgUserView},
		{"role:admin", ObjectOrgUser, ActionOrgUserCreate},
		{"role:admin", ObjectOrgUser, ActionOrgUserUpdate},
		{"role:admin", ObjectOrgUser, ActionOrgUserDelete},
		{"role:admin", ObjectInvitation, ActionInvitationView},
		{"role:admin", ObjectInvitation, ActionInvitationCreate},

		// Owners additionally manage the organization itself.
		{"role:owner", ObjectOrganization, ActionOrganizationView},
		{"role:owner", ObjectOrganization, ActionOrganizationUpdate},
		{"role:owner", ObjectOrgUser, ActionOrgUserView},
		{"role:owner", ObjectOrgUser, ActionOrgUserCreate},
		{"role:owner", ObjectOrgUser, ActionOrgUserUpdate},
		{"role:owner", ObjectOrgUser, ActionOrgUserDelete},
		{"role:owner", ObjectInvitation, ActionInvitationView},
		{"role:owner", ObjectInvitation, ActionInvitationCreate},

		// System actors provision organizations and run automation.
		{"role:system", ObjectOrganization, ActionOrganizationView},
		{"role:system", ObjectOrganization, ActionOrganizationProvision},
		{"role:system", ObjectOrganization, ActionOrganizationUpdate},
		{"role:system", ObjectOrgUser, ActionOrgUserView},
		{"role:system", ObjectOrgUser, ActionOrgUserCreate},
		{"role:system", ObjectOrgUser, ActionOrgUserUpdate},
		{"role:system", ObjectOrgUser, ActionOrgUserDelete},
		{"role:system", ObjectInvitation, ActionInvitationView},
		{"role:system", ObjectInvitation, ActionInvitationCreate},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
