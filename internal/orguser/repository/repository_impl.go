package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/orgforge/orgforge/internal/identity/domain"
	organizationdomain "github.com/orgforge/orgforge/internal/organization/domain"
	"github.com/orgforge/orgforge/internal/orguser/domain"
	profiledomain "github.com/orgforge/orgforge/internal/profile/domain"
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

func (r *repository) members(ctx context.Context, orgID snowflake.ID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&identitydomain.User{}).
		Joins("JOIN memberships m ON m.user_id = users.id").
		Where("m.team_id = ?", orgID)
}

func (r *repository) ListUsers(ctx context.Context, orgID snowflake.ID, emails []string) ([]identitydomain.User, error) {
	query := r.members(ctx, orgID)
	if len(emails) > 0 {
		lowered := make([]string, 0, len(emails))
		for _, email := range emails {
			lowered = append(lowered, strings.ToLower(strings.TrimSpace(email)))
		}
		query = query.Where("lower(users.email) IN ?", lowered)
	}

	var users []identitydomain.User
	if err := query.Order("users.created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repository) FindByEmail(ctx context.Context, orgID snowflake.ID, email string) (*identitydomain.User, error) {
	var user identitydomain.User
	err := r.members(ctx, orgID).
		Where("lower(users.email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByUsername(ctx context.Context, orgID snowflake.ID, username string, excludeUserID snowflake.ID) (*identitydomain.User, error) {
	// The tenant-scoped username lives on the user row for members
	// created inside the org and on the profile row for members
	// connected from outside it.
	query := r.members(ctx, orgID).
		Joins("LEFT JOIN profiles p ON p.user_id = users.id AND p.organization_id = ?", orgID).
		Where("COALESCE(p.username, users.username) = ?", username)
	if excludeUserID != 0 {
		query = query.Where("users.id <> ?", excludeUserID)
	}

	var user identitydomain.User
	err := query.First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateUser(ctx context.Context, orgID, userID snowflake.ID, fields map[string]any) (*identitydomain.User, error) {
	member, err := r.findMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	if len(fields) > 0 {
		if err := r.db.WithContext(ctx).Model(&identitydomain.User{}).
			Where("id = ?", member.ID).
			Updates(fields).Error; err != nil {
			if dbpkg.IsDuplicateKeyErr(err) {
				return nil, domain.ErrUsernameConflict
			}
			return nil, err
		}

		if username, ok := fields["username"]; ok {
			err := r.db.WithContext(ctx).Model(&profiledomain.Profile{}).
				Where("user_id = ? AND organization_id = ?", member.ID, orgID).
				Update("username", username).Error
			if err != nil {
				if dbpkg.IsDuplicateKeyErr(err) {
					return nil, domain.ErrUsernameConflict
				}
				return nil, err
			}
		}
	}

	return r.findMember(ctx, orgID, userID)
}

func (r *repository) DeleteUser(ctx context.Context, orgID, userID snowflake.ID) (*identitydomain.User, error) {
	member, err := r.findMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("team_id = ? AND user_id = ?", orgID, userID).
			Delete(&organizationdomain.Membership{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrUserNotFound
		}

		if err := tx.Where("user_id = ? AND organization_id = ?", userID, orgID).
			Delete(&profiledomain.Profile{}).Error; err != nil {
			return err
		}

		if member.OrganizationID != nil && *member.OrganizationID == orgID {
			if err := tx.Model(&identitydomain.User{}).
				Where("id = ?", userID).
				Update("organization_id", nil).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return member, nil
}

func (r *repository) findMember(ctx context.Context, orgID, userID snowflake.ID) (*identitydomain.User, error) {
	var user identitydomain.User
	err := r.members(ctx, orgID).Where("users.id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
