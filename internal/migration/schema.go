package migration

import (
	identitydomain "github.com/orgforge/orgforge/internal/identity/domain"
	invitationdomain "github.com/orgforge/orgforge/internal/invitation/domain"
	organizationdomain "github.com/orgforge/orgforge/internal/organization/domain"
	profiledomain "github.com/orgforge/orgforge/internal/profile/domain"
	"gorm.io/gorm"
)

// AutoSchema creates the schema from the gorm models for databases the
// SQL migrations do not target. The model tags carry the unique indexes;
// the postgres-only partial predicates degrade to plain unique indexes.
func AutoSchema(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&identitydomain.User{},
		&organizationdomain.Organization{},
		&organizationdomain.OrganizationSettings{},
		&organizationdomain.Membership{},
		&profiledomain.Profile{},
		&invitationdomain.Invitation{},
	)
}
