package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/orgforge/orgforge/internal/profile/domain"
	dbpkg "github.com/orgforge/orgforge/pkg/db"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, profile *domain.Profile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return domain.ErrProfileExists
		}
		return err
	}
	return nil
}

func (r *repository) FindByUserAndOrg(ctx context.Context, userID, orgID snowflake.ID) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.db.WithContext(ctx).
		First(&profile, "user_id = ? AND organization_id = ?", userID, orgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) UsernameExists(ctx context.Context, orgID snowflake.ID, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Profile{}).
		Where("organization_id = ? AND username = ?", orgID, username).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
