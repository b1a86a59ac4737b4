// Package domain contains persistence models for profile attachment.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Profile binds a user to an organization under a tenant-scoped username,
// distinct from the username the user holds outside the organization.
type Profile struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	UID            string       `gorm:"type:text;not null" json:"uid"`
	UserID         snowflake.ID `gorm:"not null;index;uniqueIndex:ux_profiles_user_org,priority:1" json:"user_id"`
	OrganizationID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_profiles_user_org,priority:2;uniqueIndex:ux_profiles_org_username,priority:1" json:"organization_id"`
	Username       string       `gorm:"type:text;not null;uniqueIndex:ux_profiles_org_username,priority:2" json:"username"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Profile) TableName() string { return "profiles" }
