package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/orgforge/orgforge/internal/clock"
	"github.com/orgforge/orgforge/internal/config"
	identitydomain "github.com/orgforge/orgforge/internal/identity/domain"
	"github.com/orgforge/orgforge/internal/organization/domain"
	profiledomain "github.com/orgforge/orgforge/internal/profile/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type provisioner struct {
	db       *gorm.DB
	cfg      config.Config
	repo     domain.Repository
	users    identitydomain.Repository
	profiles profiledomain.Service
	genID    *snowflake.Node
	clk      clock.Clock
	log      *zap.Logger
}

func NewProvisioner(
	db *gorm.DB,
	cfg config.Config,
	repo domain.Repository,
	users identitydomain.Repository,
	profiles profiledomain.Service,
	genID *snowflake.Node,
	clk clock.Clock,
	log *zap.Logger,
) domain.Provisioner {
	return &provisioner{
		db:       db,
		cfg:      cfg,
		repo:     repo,
		users:    users,
		profiles: profiles,
		genID:    genID,
		clk:      clk,
		log:      log,
	}
}

func (p *provisioner) CreateWithExistingOwner(ctx context.Context, data domain.OrgData, owner domain.ExistingOwner) (*domain.ProvisionResult, error) {
	if err := validateOrgData(data); err != nil {
		return nil, err
	}
	if owner.ID == 0 || strings.TrimSpace(owner.Email) == "" {
		return nil, domain.ErrInvalidEmail
	}

	p.log.Debug("provisioning organization with existing owner",
		zap.String("slug", data.Slug),
		zap.String("owner_id", owner.ID.String()),
	)

	var result domain.ProvisionResult
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := p.repo.WithTx(tx)

		org, err := p.insertOrganization(ctx, repo, data)
		if err != nil {
			return err
		}

		profile, err := p.profiles.WithTx(tx).CreateForExistingUser(ctx, profiledomain.ExistingUser{
			ID:              owner.ID,
			Email:           owner.Email,
			CurrentUsername: owner.NonOrgUsername,
		}, org.ID)
		if err != nil {
			return err
		}

		if err := repo.AddMembership(ctx, p.ownerMembership(org.ID, owner.ID)); err != nil {
			return err
		}

		result = domain.ProvisionResult{
			Organization: org,
			Profile:      profile,
			OwnerProfile: domain.OwnerProfile{Username: profile.Username},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (p *provisioner) CreateWithNewOwner(ctx context.Context, data domain.OrgData, owner domain.NewOwner) (*domain.ProvisionResult, error) {
	if err := validateOrgData(data); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(owner.Email)
	if !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}

	p.log.Debug("provisioning organization with new owner",
		zap.String("slug", data.Slug),
	)

	var result domain.ProvisionResult
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := p.repo.WithTx(tx)

		org, err := p.insertOrganization(ctx, repo, data)
		if err != nil {
			return err
		}

		username := OrgUsernameFromEmail(email, data.AutoAcceptEmail)
		now := p.clk.Now()
		orgID := org.ID
		user := &identitydomain.User{
			ID:             p.genID.Generate(),
			Email:          email,
			Username:       username,
			OrganizationID: &orgID,
			Role:           identitydomain.RoleUser,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := p.users.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}

		if err := repo.AddMembership(ctx, p.ownerMembership(org.ID, user.ID)); err != nil {
			return err
		}

		result = domain.ProvisionResult{
			Organization: org,
			OrgOwner:     user,
			OwnerProfile: domain.OwnerProfile{Username: username},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// insertOrganization writes the tenant row and its settings. The slug only
// goes live when team billing is disabled; otherwise it is parked in
// metadata as a requested slug until an external billing workflow promotes
// it.
func (p *provisioner) insertOrganization(ctx context.Context, repo domain.Repository, data domain.OrgData) (*domain.Organization, error) {
	now := p.clk.Now()
	org := &domain.Organization{
		ID:             p.genID.Generate(),
		Name:           strings.TrimSpace(data.Name),
		LogoURL:        data.LogoURL,
		IsOrganization: true,
		IsPlatform:     data.IsPlatform,
		Metadata: domain.Metadata{
			OrgSeats:        data.Seats,
			OrgPricePerSeat: data.PricePerSeat,
			IsPlatform:      data.IsPlatform,
			BillingPeriod:   data.BillingPeriod,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	requested := slug.Make(data.Slug)
	if p.cfg.TeamBillingEnabled {
		org.Metadata.RequestedSlug = requested
	} else {
		org.Slug = &requested
	}

	if err := repo.CreateOrganization(ctx, org); err != nil {
		return nil, err
	}

	settings := &domain.OrganizationSettings{
		ID:                       p.genID.Generate(),
		OrganizationID:           org.ID,
		IsAdminReviewed:          data.IsOrganizationAdminReviewed,
		IsOrganizationVerified:   true,
		IsOrganizationConfigured: data.IsOrganizationConfigured,
		OrgAutoAcceptEmail:       strings.ToLower(strings.TrimSpace(data.AutoAcceptEmail)),
		CreatedAt:                now,
	}
	if err := repo.CreateSettings(ctx, settings); err != nil {
		return nil, err
	}
	org.Settings = settings

	return org, nil
}

func (p *provisioner) ownerMembership(orgID, userID snowflake.ID) *domain.Membership {
	return &domain.Membership{
		ID:        p.genID.Generate(),
		TeamID:    orgID,
		UserID:    userID,
		Role:      domain.RoleOwner,
		Accepted:  true,
		CreatedAt: p.clk.Now(),
	}
}

func (p *provisioner) FindByID(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	return p.repo.FindByID(ctx, id)
}

func (p *provisioner) FindByIDIncludeSettings(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	return p.repo.FindByIDIncludeSettings(ctx, id)
}

func (p *provisioner) FindUniqueByAutoAcceptDomain(ctx context.Context, email string) (*domain.Organization, error) {
	emailDomain := EmailDomain(email)
	if emailDomain == "" {
		return nil, domain.ErrInvalidEmail
	}

	orgs, err := p.repo.ListByAutoAcceptDomain(ctx, emailDomain)
	if err != nil {
		return nil, err
	}
	if len(orgs) > 1 {
		// Data corruption, not a request error. Identify and fix the
		// rows instead of picking one.
		p.log.Error("auto accept domain claimed by multiple organizations",
			zap.String("domain", emailDomain),
			zap.Int("matches", len(orgs)),
		)
		return nil, domain.ErrAutoAcceptDomainIntegrity
	}
	if len(orgs) == 0 {
		return nil, nil
	}
	return &orgs[0], nil
}

func validateOrgData(data domain.OrgData) error {
	if strings.TrimSpace(data.Name) == "" {
		return domain.ErrInvalidName
	}
	if slug.Make(data.Slug) == "" {
		return domain.ErrInvalidSlug
	}
	return nil
}
