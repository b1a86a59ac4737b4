package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrProfileExists = errors.New("profile_exists")

// ExistingUser identifies a user being attached to an organization.
type ExistingUser struct {
	ID              snowflake.ID
	Email           string
	CurrentUsername string
}

type Service interface {
	WithTx(tx *gorm.DB) Service
	// CreateForExistingUser binds the user to the organization, rewriting
	// the username when it is already claimed inside that organization.
	CreateForExistingUser(ctx context.Context, user ExistingUser, orgID snowflake.ID) (*Profile, error)
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, profile *Profile) error
	FindByUserAndOrg(ctx context.Context, userID, orgID snowflake.ID) (*Profile, error)
	UsernameExists(ctx context.Context, orgID snowflake.ID, username string) (bool, error)
}
