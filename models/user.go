package models

import (
	"time"

	"gorm.io/gorm"
)

// Role hierarchy, highest first. Authorization checks compare levels, so a
// super_admin passes every gate an org_admin does.
const (
	RoleSuperAdmin   = "super_admin"
	RoleOrgAdmin     = "org_admin"
	RoleProjectAdmin = "project_admin"
	RoleTeamLead     = "team_lead"
	RoleDeveloper    = "developer"
	RoleViewer       = "viewer"
	RoleGuest        = "guest"
)

var roleLevels = map[string]int{
	RoleSuperAdmin:   7,
	RoleOrgAdmin:     6,
	RoleProjectAdmin: 5,
	RoleTeamLead:     4,
	RoleDeveloper:    3,
	RoleViewer:       2,
	RoleGuest:        1,
}

// RoleAtLeast reports whether role sits at or above min in the hierarchy.
// Unknown roles rank below guest.
func RoleAtLeast(role, min string) bool {
	return roleLevels[role] >= roleLevels[min]
}

// ValidRole reports whether role is one of the fixed hierarchy values.
func ValidRole(role string) bool {
	_, ok := roleLevels[role]
	return ok
}

// User represents an account in the system
type User struct {
	gorm.Model

	// Authentication fields
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Google OAuth fields
	GoogleID       *string `gorm:"uniqueIndex" json:"google_id,omitempty"`
	GoogleImageURL *string `json:"google_image_url,omitempty"`

	// Profile information
	Name      string  `gorm:"not null" json:"name"`
	AvatarURL *string `json:"avatar_url,omitempty"`

	// Role within the fixed hierarchy
	Role string `gorm:"default:'developer';not null" json:"role"`

	// Optional tenant affiliation
	OrganizationID *uint `gorm:"index" json:"organization_id,omitempty"`

	// Free-form per-user preferences
	Preferences map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"preferences,omitempty"`

	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
}

// UserSummary is the resolved shape of a user reference. Handlers return it
// instead of the full record when populating reporter/assignee/lead fields,
// so a caller can never mistake a bare id for a loaded user.
type UserSummary struct {
	ID        uint    `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Summary returns the public identity of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
	}
}
