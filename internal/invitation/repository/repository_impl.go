package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/orgforge/orgforge/internal/invitation/domain"
	organizationdomain "github.com/orgforge/orgforge/internal/organization/domain"
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

func (r *repository) Create(ctx context.Context, invitation *domain.Invitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

func (r *repository) FindPendingByCode(ctx context.Context, code string) (*domain.Invitation, error) {
	var invitation domain.Invitation
	err := r.db.WithContext(ctx).
		First(&invitation, "code = ? AND status = ?", code, domain.StatusPending).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *repository) AcceptMembership(ctx context.Context, orgID, userID snowflake.ID) error {
	result := r.db.WithContext(ctx).Model(&organizationdomain.Membership{}).
		Where("team_id = ? AND user_id = ?", orgID, userID).
		Update("accepted", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInviteNotFound
	}
	return nil
}

func (r *repository) MarkCompleted(ctx context.Context, id snowflake.ID) error {
	result := r.db.WithContext(ctx).Model(&domain.Invitation{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Update("status", domain.StatusCompleted)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInviteNotFound
	}
	return nil
}
