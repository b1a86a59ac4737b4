package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/orgforge/orgforge/internal/clock"
	"github.com/orgforge/orgforge/internal/config"
	identitydomain "github.com/orgforge/orgforge/internal/identity/domain"
	identityrepository "github.com/orgforge/orgforge/internal/identity/repository"
	identityservice "github.com/orgforge/orgforge/internal/identity/service"
	invitationdomain "github.com/orgforge/orgforge/internal/invitation/domain"
	invitationrepository "github.com/orgforge/orgforge/internal/invitation/repository"
	invitationservice "github.com/orgforge/orgforge/internal/invitation/service"
	organizationdomain "github.com/orgforge/orgforge/internal/organization/domain"
	organizationrepository "github.com/orgforge/orgforge/internal/organization/repository"
	organizationservice "github.com/orgforge/orgforge/internal/organization/service"
	"github.com/orgforge/orgforge/internal/orguser/domain"
	orguserrepository "github.com/orgforge/orgforge/internal/orguser/repository"
	profiledomain "github.com/orgforge/orgforge/internal/profile/domain"
	profilerepository "github.com/orgforge/orgforge/internal/profile/repository"
	profileservice "github.com/orgforge/orgforge/internal/profile/service"
	"github.com/orgforge/orgforge/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type sentMail struct {
	to       []string
	template string
	data     map[string]interface{}
}

type fakeMailer struct {
	sent []sentMail
}

func (f *fakeMailer) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}

func (f *fakeMailer) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	payload, _ := data.(map[string]interface{})
	f.sent = append(f.sent, sentMail{to: to, template: templateName, data: payload})
	return nil
}

type testEnv struct {
	conn   *gorm.DB
	svc    domain.Service
	mailer *fakeMailer
	users  identitydomain.Repository
	clk    *clock.FakeClock
	org    domain.OrgRef
	owner  *identitydomain.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&identitydomain.User{},
		&organizationdomain.Organization{},
		&organizationdomain.OrganizationSettings{},
		&organizationdomain.Membership{},
		&profiledomain.Profile{},
		&invitationdomain.Invitation{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	policy := config.NewStaticPolicyHolder(config.DefaultOnboardingPolicy())

	identityRepo := identityrepository.NewRepository(conn)
	passwords := identityservice.NewService(identityRepo)
	profiles := profileservice.NewService(profilerepository.NewRepository(conn), node, clk, log)
	orgRepo := organizationrepository.NewRepository(conn)

	provisioner := organizationservice.NewProvisioner(conn, config.Config{}, orgRepo, identityRepo, profiles, node, clk, log)
	result, err := provisioner.CreateWithNewOwner(context.Background(), organizationdomain.OrgData{
		Name:            "Acme Inc",
		Slug:            "acme",
		AutoAcceptEmail: "acme.com",
	}, organizationdomain.NewOwner{Email: "bob@acme.com"})
	require.NoError(t, err)

	invites := invitationservice.NewService(conn, invitationrepository.NewRepository(conn),
		identityRepo, passwords, profiles, orgRepo, policy, node, clk, log)

	mailer := &fakeMailer{}
	svc := NewService(orguserrepository.NewRepository(conn), invites, mailer, policy, log)

	return &testEnv{
		conn:   conn,
		svc:    svc,
		mailer: mailer,
		users:  identityRepo,
		clk:    clk,
		org: domain.OrgRef{
			ID:                    result.Organization.ID,
			Name:                  result.Organization.Name,
			AutoAcceptEmailDomain: "acme.com",
		},
		owner: result.OrgOwner,
	}
}

func (e *testEnv) userCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.conn.Model(&identitydomain.User{}).Count(&count).Error)
	return count
}

func TestAddUserCreatesMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.AddUser(ctx, env.org, domain.CreateUserRequest{
		Email:            "new.hire@acme.com",
		OrganizationRole: "member",
		AutoAccept:       true,
		Name:             "New Hire",
		TimeZone:         "Europe/Berlin",
	})
	require.NoError(t, err)

	assert.Equal(t, "new.hire@acme.com", user.Email)
	assert.Equal(t, "new-hire", user.Username)
	assert.Equal(t, "New Hire", user.Name)
	assert.Equal(t, "Europe/Berlin", user.TimeZone)
	assert.Equal(t, "en", user.Locale)

	var membership organizationdomain.Membership
	require.NoError(t, env.conn.Where("team_id = ? AND user_id = ?", env.org.ID, user.ID).First(&membership).Error)
	assert.Equal(t, organizationdomain.RoleMember, membership.Role)
	assert.True(t, membership.Accepted)

	var invitation invitationdomain.Invitation
	require.NoError(t, env.conn.Where("org_id = ? AND user_id = ?", env.org.ID, user.ID).First(&invitation).Error)
	assert.Equal(t, invitationdomain.StatusPending, invitation.Status)
	assert.NotEmpty(t, invitation.Code)

	require.Len(t, env.mailer.sent, 1)
	assert.Equal(t, []string{"new.hire@acme.com"}, env.mailer.sent[0].to)
	assert.Equal(t, "invite_member", env.mailer.sent[0].template)
	assert.Equal(t, "Acme Inc", env.mailer.sent[0].data["org_name"])
}

func TestAddUserConnectsExistingAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	outsider := &identitydomain.User{
		ID:       snowflake.ID(9001),
		Email:    "veteran@elsewhere.com",
		Username: "veteran",
		Role:     identitydomain.RoleUser,
	}
	require.NoError(t, env.conn.Create(outsider).Error)

	user, err := env.svc.AddUser(ctx, env.org, domain.CreateUserRequest{
		Email:            "veteran@elsewhere.com",
		OrganizationRole: organizationdomain.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, outsider.ID, user.ID)

	// Connected accounts get a tenant profile, not a second user row.
	var profile profiledomain.Profile
	require.NoError(t, env.conn.Where("user_id = ? AND organization_id = ?", outsider.ID, env.org.ID).First(&profile).Error)
	assert.Equal(t, "veteran", profile.Username)

	var membership organizationdomain.Membership
	require.NoError(t, env.conn.Where("team_id = ? AND user_id = ?", env.org.ID, outsider.ID).First(&membership).Error)
	assert.Equal(t, organizationdomain.RoleAdmin, membership.Role)
	assert.False(t, membership.Accepted)

	var invitations int64
	require.NoError(t, env.conn.Model(&invitationdomain.Invitation{}).
		Where("user_id = ?", outsider.ID).Count(&invitations).Error)
	assert.Zero(t, invitations)
}

func TestAddUserEmailConflict(t *testing.T) {
	env := newTestEnv(t)
	before := env.userCount(t)

	_, err := env.svc.AddUser(context.Background(), env.org, domain.CreateUserRequest{
		Email: "Bob@acme.com",
	})
	assert.ErrorIs(t, err, domain.ErrEmailConflict)
	assert.Equal(t, before, env.userCount(t))
	assert.Empty(t, env.mailer.sent)
}

func TestAddUserUsernameConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.AddUser(ctx, env.org, domain.CreateUserRequest{
		Email:    "first@acme.com",
		Username: "taken",
	})
	require.NoError(t, err)
	before := env.userCount(t)

	_, err = env.svc.AddUser(ctx, env.org, domain.CreateUserRequest{
		Email:    "second@acme.com",
		Username: "taken",
	})
	assert.ErrorIs(t, err, domain.ErrUsernameConflict)
	assert.Equal(t, before, env.userCount(t))
}

func TestAddUserReservedUsername(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.AddUser(context.Background(), env.org, domain.CreateUserRequest{
		Email:    "boss@acme.com",
		Username: "Admin",
	})
	assert.ErrorIs(t, err, domain.ErrReservedUsername)
}

func TestAddUserRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.AddUser(ctx, env.org, domain.CreateUserRequest{Email: "no-at-sign"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = env.svc.AddUser(ctx, env.org, domain.CreateUserRequest{
		Email:            "x@acme.com",
		OrganizationRole: "SUPREME_LEADER",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestUpdateUserKeepsOwnUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	username := env.owner.Username
	name := "Robert"
	user, err := env.svc.UpdateUser(ctx, env.org.ID, env.owner.ID, domain.UpdateUserRequest{
		Username: &username,
		Name:     &name,
	})
	require.NoError(t, err)
	assert.Equal(t, username, user.Username)
	assert.Equal(t, "Robert", user.Name)
}

func TestUpdateUserUsernameConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	other, err := env.svc.AddUser(ctx, env.org, domain.CreateUserRequest{
		Email:    "colleague@acme.com",
		Username: "colleague",
	})
	require.NoError(t, err)

	taken := env.owner.Username
	_, err = env.svc.UpdateUser(ctx, env.org.ID, other.ID, domain.UpdateUserRequest{Username: &taken})
	assert.ErrorIs(t, err, domain.ErrUsernameConflict)
}

func TestUpdateUserNotFound(t *testing.T) {
	env := newTestEnv(t)

	name := "Ghost"
	_, err := env.svc.UpdateUser(context.Background(), env.org.ID, snowflake.ID(123456), domain.UpdateUserRequest{Name: &name})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRemoveUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	member, err := env.svc.AddUser(ctx, env.org, domain.CreateUserRequest{Email: "leaver@acme.com"})
	require.NoError(t, err)

	removed, err := env.svc.RemoveUser(ctx, env.org.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, member.ID, removed.ID)

	var memberships int64
	require.NoError(t, env.conn.Model(&organizationdomain.Membership{}).
		Where("team_id = ? AND user_id = ?", env.org.ID, member.ID).Count(&memberships).Error)
	assert.Zero(t, memberships)

	_, err = env.svc.RemoveUser(ctx, env.org.ID, member.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestListUsersFiltersByEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.clk.Advance(time.Minute)
	_, err := env.svc.AddUser(ctx, env.org, domain.CreateUserRequest{Email: "a@acme.com"})
	require.NoError(t, err)
	env.clk.Advance(time.Minute)
	_, err = env.svc.AddUser(ctx, env.org, domain.CreateUserRequest{Email: "b@acme.com"})
	require.NoError(t, err)

	all, err := env.svc.ListUsers(ctx, env.org.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"bob@acme.com", "a@acme.com", "b@acme.com"},
		[]string{all[0].Email, all[1].Email, all[2].Email})

	filtered, err := env.svc.ListUsers(ctx, env.org.ID, []string{" A@ACME.com ", "a@acme.com"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "a@acme.com", filtered[0].Email)
}
