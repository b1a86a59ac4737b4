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
	"github.com/orgforge/orgforge/internal/invitation/domain"
	invitationrepository "github.com/orgforge/orgforge/internal/invitation/repository"
	organizationdomain "github.com/orgforge/orgforge/internal/organization/domain"
	organizationrepository "github.com/orgforge/orgforge/internal/organization/repository"
	profiledomain "github.com/orgforge/orgforge/internal/profile/domain"
	profilerepository "github.com/orgforge/orgforge/internal/profile/repository"
	profileservice "github.com/orgforge/orgforge/internal/profile/service"
	"github.com/orgforge/orgforge/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&identitydomain.User{},
		&organizationdomain.Organization{},
		&organizationdomain.OrganizationSettings{},
		&organizationdomain.Membership{},
		&profiledomain.Profile{},
		&domain.Invitation{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	policy := config.NewStaticPolicyHolder(config.DefaultOnboardingPolicy())

	identityRepo := identityrepository.NewRepository(conn)
	profiles := profileservice.NewService(profilerepository.NewRepository(conn), node, clk, log)

	svc := NewService(conn, invitationrepository.NewRepository(conn),
		identityRepo, identityservice.NewService(identityRepo), profiles,
		organizationrepository.NewRepository(conn), policy, node, clk, log)
	return svc, conn
}

func inviteOne(t *testing.T, svc domain.Service, orgID snowflake.ID, identifier, email string, autoAccept bool) identitydomain.User {
	t.Helper()
	users, err := svc.CreateUsersConnectToOrg(context.Background(), domain.BatchRequest{
		Invitations: []domain.Invite{{UsernameOrEmail: identifier, Email: email, Role: organizationdomain.RoleMember}},
		TeamID:      orgID,
		IsOrg:       true,
		ConnectInfo: map[string]domain.ConnectInfo{
			identifier: {OrgID: orgID, AutoAccept: autoAccept},
		},
	})
	require.NoError(t, err)
	require.Len(t, users, 1)
	return users[0]
}

func pendingInvitation(t *testing.T, conn *gorm.DB, userID snowflake.ID) domain.Invitation {
	t.Helper()
	var invitation domain.Invitation
	require.NoError(t, conn.Where("user_id = ?", userID).First(&invitation).Error)
	return invitation
}

func TestCreateUsersConnectToOrg(t *testing.T) {
	svc, conn := newTestService(t)
	orgID := snowflake.ID(100)

	user := inviteOne(t, svc, orgID, "walker@acme.com", "walker@acme.com", false)
	assert.Equal(t, "walker@acme.com", user.Email)
	assert.Equal(t, "en", user.Locale)
	require.NotNil(t, user.OrganizationID)
	assert.Equal(t, orgID, *user.OrganizationID)

	invitation := pendingInvitation(t, conn, user.ID)
	assert.Equal(t, domain.StatusPending, invitation.Status)
	assert.NotEmpty(t, invitation.Code)

	var membership organizationdomain.Membership
	require.NoError(t, conn.Where("team_id = ? AND user_id = ?", orgID, user.ID).First(&membership).Error)
	assert.False(t, membership.Accepted)
}

func TestCreateUsersConnectToOrgRejectsBadBatches(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUsersConnectToOrg(ctx, domain.BatchRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInvite)

	_, err = svc.CreateUsersConnectToOrg(ctx, domain.BatchRequest{
		Invitations: []domain.Invite{{UsernameOrEmail: "ghost@acme.com", Email: "ghost@acme.com"}},
		TeamID:      snowflake.ID(100),
		ConnectInfo: map[string]domain.ConnectInfo{},
	})
	assert.ErrorIs(t, err, domain.ErrMissingLinkage)
}

func TestVerifyAcceptsMembershipAndSetsPassword(t *testing.T) {
	svc, conn := newTestService(t)
	orgID := snowflake.ID(100)
	ctx := context.Background()

	user := inviteOne(t, svc, orgID, "walker@acme.com", "walker@acme.com", false)
	invitation := pendingInvitation(t, conn, user.ID)

	require.NoError(t, svc.Verify(ctx, domain.VerifyRequest{
		Code:     invitation.Code,
		Password: "correct horse battery",
	}))

	var membership organizationdomain.Membership
	require.NoError(t, conn.Where("team_id = ? AND user_id = ?", orgID, user.ID).First(&membership).Error)
	assert.True(t, membership.Accepted)

	var completed domain.Invitation
	require.NoError(t, conn.First(&completed, "id = ?", invitation.ID).Error)
	assert.Equal(t, domain.StatusCompleted, completed.Status)

	var reloaded identitydomain.User
	require.NoError(t, conn.First(&reloaded, "id = ?", user.ID).Error)
	require.NotNil(t, reloaded.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*reloaded.PasswordHash), []byte("correct horse battery")))

	// The code is single-use.
	err := svc.Verify(ctx, domain.VerifyRequest{Code: invitation.Code})
	assert.ErrorIs(t, err, domain.ErrInviteNotFound)
}

func TestVerifyWithoutPasswordLeavesHashUnset(t *testing.T) {
	svc, conn := newTestService(t)
	orgID := snowflake.ID(100)

	user := inviteOne(t, svc, orgID, "walker@acme.com", "walker@acme.com", false)
	invitation := pendingInvitation(t, conn, user.ID)

	require.NoError(t, svc.Verify(context.Background(), domain.VerifyRequest{Code: invitation.Code}))

	var reloaded identitydomain.User
	require.NoError(t, conn.First(&reloaded, "id = ?", user.ID).Error)
	assert.Nil(t, reloaded.PasswordHash)
}

func TestVerifyWeakPasswordRollsBack(t *testing.T) {
	svc, conn := newTestService(t)
	orgID := snowflake.ID(100)

	user := inviteOne(t, svc, orgID, "walker@acme.com", "walker@acme.com", false)
	invitation := pendingInvitation(t, conn, user.ID)

	err := svc.Verify(context.Background(), domain.VerifyRequest{
		Code:     invitation.Code,
		Password: "short",
	})
	assert.ErrorIs(t, err, identityservice.ErrWeakPassword)

	// Neither the membership nor the invitation moved.
	var membership organizationdomain.Membership
	require.NoError(t, conn.Where("team_id = ? AND user_id = ?", orgID, user.ID).First(&membership).Error)
	assert.False(t, membership.Accepted)

	var unchanged domain.Invitation
	require.NoError(t, conn.First(&unchanged, "id = ?", invitation.ID).Error)
	assert.Equal(t, domain.StatusPending, unchanged.Status)
}

func TestVerifyMissingMembershipRollsBack(t *testing.T) {
	svc, conn := newTestService(t)
	orgID := snowflake.ID(100)

	user := inviteOne(t, svc, orgID, "walker@acme.com", "walker@acme.com", false)
	invitation := pendingInvitation(t, conn, user.ID)

	require.NoError(t, conn.Where("team_id = ? AND user_id = ?", orgID, user.ID).
		Delete(&organizationdomain.Membership{}).Error)

	err := svc.Verify(context.Background(), domain.VerifyRequest{
		Code:     invitation.Code,
		Password: "correct horse battery",
	})
	assert.ErrorIs(t, err, domain.ErrInviteNotFound)

	// The completed mark was rolled back with the rest of the transaction.
	var unchanged domain.Invitation
	require.NoError(t, conn.First(&unchanged, "id = ?", invitation.ID).Error)
	assert.Equal(t, domain.StatusPending, unchanged.Status)

	var reloaded identitydomain.User
	require.NoError(t, conn.First(&reloaded, "id = ?", user.ID).Error)
	assert.Nil(t, reloaded.PasswordHash)
}

func TestVerifyRejectsBadCodes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Verify(ctx, domain.VerifyRequest{Code: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInvite)

	err = svc.Verify(ctx, domain.VerifyRequest{Code: "not-a-real-code"})
	assert.ErrorIs(t, err, domain.ErrInviteNotFound)
}
