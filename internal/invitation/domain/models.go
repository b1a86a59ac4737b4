// Package domain contains types for the batch-invitation routine.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
)

// Invitation tracks a pending invite for a user created through the
// batch routine; the code is mailed out and redeemed on acceptance.
type Invitation struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"column:org_id;not null;index" json:"org_id"`
	UserID    snowflake.ID `gorm:"not null;index" json:"user_id"`
	Email     string       `gorm:"type:text;not null" json:"email"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	Code      string       `gorm:"type:text;not null;uniqueIndex" json:"-"`
	Status    string       `gorm:"type:text;not null" json:"status"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invitation) TableName() string { return "invitations" }
