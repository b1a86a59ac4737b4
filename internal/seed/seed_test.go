package seed

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/orgforge/orgforge/internal/clock"
	"github.com/orgforge/orgforge/internal/config"
	identitydomain "github.com/orgforge/orgforge/internal/identity/domain"
	identityrepository "github.com/orgforge/orgforge/internal/identity/repository"
	organizationdomain "github.com/orgforge/orgforge/internal/organization/domain"
	organizationrepository "github.com/orgforge/orgforge/internal/organization/repository"
	organizationservice "github.com/orgforge/orgforge/internal/organization/service"
	profiledomain "github.com/orgforge/orgforge/internal/profile/domain"
	profilerepository "github.com/orgforge/orgforge/internal/profile/repository"
	profileservice "github.com/orgforge/orgforge/internal/profile/service"
	"github.com/orgforge/orgforge/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newSeedFixture(t *testing.T) (organizationdomain.Repository, organizationdomain.Provisioner, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&identitydomain.User{},
		&organizationdomain.Organization{},
		&organizationdomain.OrganizationSettings{},
		&organizationdomain.Membership{},
		&profiledomain.Profile{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	repo := organizationrepository.NewRepository(conn)
	profiles := profileservice.NewService(profilerepository.NewRepository(conn), node, clk, log)
	provisioner := organizationservice.NewProvisioner(conn, config.Config{}, repo,
		identityrepository.NewRepository(conn), profiles, node, clk, log)

	return repo, provisioner, conn
}

func seedConfig(ownerEmail string) config.Config {
	return config.Config{
		Bootstrap: config.BootstrapConfig{
			EnsureDefaultOrg: true,
			DefaultOrgName:   "Main",
			DefaultOrgSlug:   "main",
			OwnerEmail:       ownerEmail,
		},
	}
}

func TestEnsureDefaultOrgSeedsOnce(t *testing.T) {
	repo, provisioner, conn := newSeedFixture(t)
	log := zaptest.NewLogger(t)
	cfg := seedConfig("Admin@Main.dev")

	require.NoError(t, EnsureDefaultOrg(repo, cfg, provisioner, log))

	var orgs int64
	require.NoError(t, conn.Model(&organizationdomain.Organization{}).Count(&orgs).Error)
	assert.EqualValues(t, 1, orgs)

	var owner identitydomain.User
	require.NoError(t, conn.First(&owner, "email = ?", "admin@main.dev").Error)

	// A second pass sees the existing organization and does nothing.
	require.NoError(t, EnsureDefaultOrg(repo, cfg, provisioner, log))
	require.NoError(t, conn.Model(&organizationdomain.Organization{}).Count(&orgs).Error)
	assert.EqualValues(t, 1, orgs)
}

func TestEnsureDefaultOrgSkipsWithoutOwnerEmail(t *testing.T) {
	repo, provisioner, conn := newSeedFixture(t)

	require.NoError(t, EnsureDefaultOrg(repo, seedConfig("   "), provisioner, zaptest.NewLogger(t)))

	var orgs int64
	require.NoError(t, conn.Model(&organizationdomain.Organization{}).Count(&orgs).Error)
	assert.Zero(t, orgs)
}
