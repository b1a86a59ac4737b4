package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/orgforge/orgforge/internal/config"
	organizationdomain "github.com/orgforge/orgforge/internal/organization/domain"
	"go.uber.org/zap"
)

// EnsureDefaultOrg provisions a first organization and owner so an OSS
// install is usable immediately after startup. It is a no-op once any
// organization exists.
func EnsureDefaultOrg(
	repo organizationdomain.Repository,
	cfg config.Config,
	provisioner organizationdomain.Provisioner,
	log *zap.Logger,
) error {
	if repo == nil {
		return errors.New("seed organization repository is required")
	}

	ownerEmail := strings.ToLower(strings.TrimSpace(cfg.Bootstrap.OwnerEmail))
	if ownerEmail == "" {
		log.Warn("bootstrap default org enabled without owner email, skipping seed")
		return nil
	}

	ctx := context.Background()

	count, err := repo.CountOrganizations(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	result, err := provisioner.CreateWithNewOwner(ctx, organizationdomain.OrgData{
		Name:                        cfg.Bootstrap.DefaultOrgName,
		Slug:                        cfg.Bootstrap.DefaultOrgSlug,
		IsOrganizationConfigured:    true,
		IsOrganizationAdminReviewed: true,
	}, organizationdomain.NewOwner{Email: ownerEmail})
	if err != nil {
		return err
	}

	log.Info("seeded default organization",
		zap.String("org_id", result.Organization.ID.String()),
		zap.String("owner_username", result.OwnerProfile.Username),
	)
	return nil
}
