// Package domain contains persistence models for the identity store.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents an identity record. Email is unique system-wide;
// the username is only meaningful within the scope of one organization.
type User struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	Email          string            `gorm:"type:text;not null;uniqueIndex:ux_users_email" json:"email"`
	Username       string            `gorm:"type:text;uniqueIndex:ux_users_org_username,priority:2" json:"username"`
	OrganizationID *snowflake.ID     `gorm:"column:organization_id;uniqueIndex:ux_users_org_username,priority:1" json:"organization_id"`
	Name           string            `gorm:"type:text" json:"name"`
	Locale         string            `gorm:"type:text" json:"locale"`
	TimeZone       string            `gorm:"column:time_zone;type:text" json:"time_zone"`
	AvatarURL      string            `gorm:"column:avatar_url;type:text" json:"avatar_url"`
	Role           string            `gorm:"type:text;not null;default:USER" json:"role"`
	PasswordHash   *string           `gorm:"type:text" json:"-"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
