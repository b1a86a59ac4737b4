package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/orgforge/orgforge/internal/identity/domain"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListUsers(ctx context.Context, orgID snowflake.ID, emails []string) ([]identitydomain.User, error)
	FindByEmail(ctx context.Context, orgID snowflake.ID, email string) (*identitydomain.User, error)
	// FindByUsername looks the username up within the organization,
	// skipping excludeUserID when non-zero so updates do not conflict
	// with the user's own current username.
	FindByUsername(ctx context.Context, orgID snowflake.ID, username string, excludeUserID snowflake.ID) (*identitydomain.User, error)
	UpdateUser(ctx context.Context, orgID, userID snowflake.ID, fields map[string]any) (*identitydomain.User, error)
	DeleteUser(ctx context.Context, orgID, userID snowflake.ID) (*identitydomain.User, error)
}
