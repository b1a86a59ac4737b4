package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user_not_found")
	ErrEmailTaken   = errors.New("email_taken")
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
}
