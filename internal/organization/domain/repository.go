package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrganization(ctx context.Context, org *Organization) error
	CreateSettings(ctx context.Context, settings *OrganizationSettings) error
	AddMembership(ctx context.Context, member *Membership) error
	FindByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	FindByIDIncludeSettings(ctx context.Context, id snowflake.ID) (*Organization, error)
	ListByAutoAcceptDomain(ctx context.Context, domain string) ([]Organization, error)
	ListMemberships(ctx context.Context, orgID snowflake.ID) ([]Membership, error)
	CountOrganizations(ctx context.Context) (int64, error)
}
