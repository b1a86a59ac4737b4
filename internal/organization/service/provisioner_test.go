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
	"github.com/orgforge/orgforge/internal/organization/domain"
	"github.com/orgforge/orgforge/internal/organization/repository"
	profiledomain "github.com/orgforge/orgforge/internal/profile/domain"
	profilerepository "github.com/orgforge/orgforge/internal/profile/repository"
	profileservice "github.com/orgforge/orgforge/internal/profile/service"
	"github.com/orgforge/orgforge/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestProvisioner(t *testing.T, teamBilling bool) (domain.Provisioner, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&identitydomain.User{},
		&domain.Organization{},
		&domain.OrganizationSettings{},
		&domain.Membership{},
		&profiledomain.Profile{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	profiles := profileservice.NewService(profilerepository.NewRepository(conn), node, clk, log)

	provisioner := NewProvisioner(
		conn,
		config.Config{TeamBillingEnabled: teamBilling},
		repository.NewRepository(conn),
		identityrepository.NewRepository(conn),
		profiles,
		node,
		clk,
		log,
	)
	return provisioner, conn
}

func TestCreateWithNewOwner(t *testing.T) {
	provisioner, conn := newTestProvisioner(t, false)
	ctx := context.Background()

	result, err := provisioner.CreateWithNewOwner(ctx, domain.OrgData{
		Name:            "Acme Inc",
		Slug:            "acme",
		AutoAcceptEmail: "Acme.com",
	}, domain.NewOwner{Email: "jane@acme.com"})
	require.NoError(t, err)

	org := result.Organization
	require.NotNil(t, org)
	require.NotNil(t, org.Slug)
	assert.Equal(t, "acme", *org.Slug)
	assert.True(t, org.IsOrganization)
	assert.Empty(t, org.Metadata.RequestedSlug)

	require.NotNil(t, org.Settings)
	assert.True(t, org.Settings.IsOrganizationVerified)
	assert.Equal(t, "acme.com", org.Settings.OrgAutoAcceptEmail)

	owner := result.OrgOwner
	require.NotNil(t, owner)
	assert.Equal(t, "jane@acme.com", owner.Email)
	assert.Equal(t, "jane", owner.Username)
	assert.Equal(t, identitydomain.RoleUser, owner.Role)
	require.NotNil(t, owner.OrganizationID)
	assert.Equal(t, org.ID, *owner.OrganizationID)
	assert.Equal(t, "jane", result.OwnerProfile.Username)

	var membership domain.Membership
	require.NoError(t, conn.Where("team_id = ? AND user_id = ?", org.ID, owner.ID).First(&membership).Error)
	assert.Equal(t, domain.RoleOwner, membership.Role)
	assert.True(t, membership.Accepted)
}

func TestCreateWithNewOwnerForeignDomainUsername(t *testing.T) {
	provisioner, _ := newTestProvisioner(t, false)

	result, err := provisioner.CreateWithNewOwner(context.Background(), domain.OrgData{
		Name:            "Acme Inc",
		Slug:            "acme",
		AutoAcceptEmail: "acme.com",
	}, domain.NewOwner{Email: "jane@gmail.com"})
	require.NoError(t, err)
	assert.Equal(t, "jane-gmail", result.OwnerProfile.Username)
}

func TestCreateWithNewOwnerHoldsSlugWhenTeamBillingEnabled(t *testing.T) {
	provisioner, _ := newTestProvisioner(t, true)

	result, err := provisioner.CreateWithNewOwner(context.Background(), domain.OrgData{
		Name: "Acme Inc",
		Slug: "Acme Rocks",
	}, domain.NewOwner{Email: "jane@acme.com"})
	require.NoError(t, err)

	org := result.Organization
	assert.Nil(t, org.Slug)
	assert.Equal(t, "acme-rocks", org.Metadata.RequestedSlug)
}

func TestCreateWithExistingOwner(t *testing.T) {
	provisioner, conn := newTestProvisioner(t, false)
	ctx := context.Background()

	owner := &identitydomain.User{
		ID:       snowflake.ID(42),
		Email:    "pro@elsewhere.com",
		Username: "pro",
		Role:     identitydomain.RoleUser,
	}
	require.NoError(t, conn.Create(owner).Error)

	result, err := provisioner.CreateWithExistingOwner(ctx, domain.OrgData{
		Name: "Acme Inc",
		Slug: "acme",
	}, domain.ExistingOwner{
		ID:             owner.ID,
		Email:          owner.Email,
		NonOrgUsername: owner.Username,
	})
	require.NoError(t, err)

	// The account is not recreated, it only gains a tenant-scoped profile.
	assert.Nil(t, result.OrgOwner)
	require.NotNil(t, result.Profile)
	assert.Equal(t, "pro", result.Profile.Username)
	assert.Equal(t, result.Organization.ID, result.Profile.OrganizationID)

	var membership domain.Membership
	require.NoError(t, conn.Where("team_id = ? AND user_id = ?", result.Organization.ID, owner.ID).First(&membership).Error)
	assert.Equal(t, domain.RoleOwner, membership.Role)
	assert.True(t, membership.Accepted)
}

func TestCreateRejectsDuplicateSlug(t *testing.T) {
	provisioner, _ := newTestProvisioner(t, false)
	ctx := context.Background()

	_, err := provisioner.CreateWithNewOwner(ctx, domain.OrgData{Name: "First", Slug: "acme"},
		domain.NewOwner{Email: "one@acme.com"})
	require.NoError(t, err)

	_, err = provisioner.CreateWithNewOwner(ctx, domain.OrgData{Name: "Second", Slug: "acme"},
		domain.NewOwner{Email: "two@acme.com"})
	assert.ErrorIs(t, err, domain.ErrSlugTaken)
}

func TestCreateValidatesInput(t *testing.T) {
	provisioner, _ := newTestProvisioner(t, false)
	ctx := context.Background()

	_, err := provisioner.CreateWithNewOwner(ctx, domain.OrgData{Name: "", Slug: "acme"},
		domain.NewOwner{Email: "jane@acme.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = provisioner.CreateWithNewOwner(ctx, domain.OrgData{Name: "Acme", Slug: "   "},
		domain.NewOwner{Email: "jane@acme.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidSlug)

	_, err = provisioner.CreateWithNewOwner(ctx, domain.OrgData{Name: "Acme", Slug: "acme"},
		domain.NewOwner{Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = provisioner.CreateWithExistingOwner(ctx, domain.OrgData{Name: "Acme", Slug: "acme2"},
		domain.ExistingOwner{ID: 0, Email: "jane@acme.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestFindUniqueByAutoAcceptDomain(t *testing.T) {
	provisioner, conn := newTestProvisioner(t, false)
	ctx := context.Background()

	created, err := provisioner.CreateWithNewOwner(ctx, domain.OrgData{
		Name:            "Acme Inc",
		Slug:            "acme",
		AutoAcceptEmail: "acme.com",
	}, domain.NewOwner{Email: "jane@acme.com"})
	require.NoError(t, err)

	// No organization claims the domain.
	org, err := provisioner.FindUniqueByAutoAcceptDomain(ctx, "someone@nowhere.dev")
	require.NoError(t, err)
	assert.Nil(t, org)

	// Exactly one match.
	org, err = provisioner.FindUniqueByAutoAcceptDomain(ctx, "new.hire@acme.com")
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, created.Organization.ID, org.ID)
	require.NotNil(t, org.Settings)
	assert.Equal(t, "acme.com", org.Settings.OrgAutoAcceptEmail)

	// Invalid email shape.
	_, err = provisioner.FindUniqueByAutoAcceptDomain(ctx, "not-an-email")
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	// Two claims on the same domain is corruption, never a pick-one.
	second := &domain.Organization{ID: snowflake.ID(7001), Name: "Shadow", IsOrganization: true}
	require.NoError(t, conn.Create(second).Error)
	require.NoError(t, conn.Create(&domain.OrganizationSettings{
		ID:                 snowflake.ID(7002),
		OrganizationID:     second.ID,
		OrgAutoAcceptEmail: "acme.com",
	}).Error)

	_, err = provisioner.FindUniqueByAutoAcceptDomain(ctx, "new.hire@acme.com")
	assert.ErrorIs(t, err, domain.ErrAutoAcceptDomainIntegrity)
}
