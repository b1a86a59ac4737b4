package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/orgforge/orgforge/internal/organization/domain"
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

func (r *repository) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	if err := r.db.WithContext(ctx).Omit("Settings").Create(org).Error; err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return domain.ErrSlugTaken
		}
		return err
	}
	return nil
}

func (r *repository) CreateSettings(ctx context.Context, settings *domain.OrganizationSettings) error {
	if err := r.db.WithContext(ctx).Create(settings).Error; err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return domain.ErrAutoAcceptDomainTaken
		}
		return err
	}
	return nil
}

func (r *repository) AddMembership(ctx context.Context, member *domain.Membership) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).
		First(&org, "id = ? AND is_organization = ?", id, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) FindByIDIncludeSettings(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).
		Preload("Settings").
		First(&org, "id = ? AND is_organization = ?", id, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) ListByAutoAcceptDomain(ctx context.Context, emailDomain string) ([]domain.Organization, error) {
	var orgs []domain.Organization
	err := r.db.WithContext(ctx).
		Joins("JOIN organization_settings s ON s.organization_id = organizations.id").
		Where("s.org_auto_accept_email = ?", emailDomain).
		Preload("Settings").
		Find(&orgs).Error
	if err != nil {
		return nil, err
	}
	return orgs, nil
}

func (r *repository) ListMemberships(ctx context.Context, orgID snowflake.ID) ([]domain.Membership, error) {
	var members []domain.Membership
	err := r.db.WithContext(ctx).
		Where("team_id = ?", orgID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) CountOrganizations(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Organization{}).
		Where("is_organization = ?", true).
		Count(&count).Error
	return count, err
}
