package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	organizationdomain "github.com/orgforge/orgforge/internal/organization/domain"
	organizationrepository "github.com/orgforge/orgforge/internal/organization/repository"
	"github.com/orgforge/orgforge/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestAuthorizer(t *testing.T) Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&organizationdomain.Membership{}))

	memberships := []organizationdomain.Membership{
		{ID: snowflake.ID(1), TeamID: snowflake.ID(100), UserID: snowflake.ID(7), Role: organizationdomain.RoleAdmin, Accepted: true},
		{ID: snowflake.ID(2), TeamID: snowflake.ID(100), UserID: snowflake.ID(8), Role: organizationdomain.RoleMember, Accepted: true},
	}
	for i := range memberships {
		require.NoError(t, conn.Create(&memberships[i]).Error)
	}

	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	return NewService(Params{
		Orgs:     organizationrepository.NewRepository(conn),
		Log:      zaptest.NewLogger(t),
		Enforcer: enforcer,
	})
}

func TestAuthorizeRolesFromMemberships(t *testing.T) {
	svc := newTestAuthorizer(t)
	ctx := context.Background()

	// Admins manage people but not the organization itself.
	assert.NoError(t, svc.Authorize(ctx, "user:7", "100", ObjectOrgUser, ActionOrgUserCreate))
	assert.ErrorIs(t, svc.Authorize(ctx, "user:7", "100", ObjectOrganization, ActionOrganizationUpdate), ErrForbidden)

	// Members only look around.
	assert.NoError(t, svc.Authorize(ctx, "user:8", "100", ObjectOrgUser, ActionOrgUserView))
	assert.ErrorIs(t, svc.Authorize(ctx, "user:8", "100", ObjectOrgUser, ActionOrgUserCreate), ErrForbidden)

	// No membership, no access.
	assert.ErrorIs(t, svc.Authorize(ctx, "user:99", "100", ObjectOrgUser, ActionOrgUserView), ErrForbidden)
}

func TestAuthorizeSystemActor(t *testing.T) {
	svc := newTestAuthorizer(t)

	assert.NoError(t, svc.Authorize(context.Background(), "system", "100",
		ObjectOrganization, ActionOrganizationProvision))
}

func TestAuthorizeRejectsMalformedInput(t *testing.T) {
	svc := newTestAuthorizer(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", "100", ObjectOrgUser, ActionOrgUserView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "robot:1", "100", ObjectOrgUser, ActionOrgUserView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:7", "", ObjectOrgUser, ActionOrgUserView), ErrInvalidOrganization)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:7", "100", "", ActionOrgUserView), ErrInvalidObject)
}
