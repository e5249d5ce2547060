package models

import (
	"time"

	"gorm.io/gorm"
)

// Organization is a named tenant grouping users and projects
type Organization struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `json:"description"`
	LogoURL     string `json:"logo_url,omitempty"`

	// The owner is always present in Members as well; CreateWithOwner keeps
	// that invariant.
	OwnerID uint `gorm:"not null;index" json:"owner_id"`

	Settings map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"settings,omitempty"`

	// Relations
	Members  []OrgMember `gorm:"foreignKey:OrganizationID" json:"members,omitempty"`
	Projects []Project   `gorm:"foreignKey:OrganizationID" json:"projects,omitempty"`
}

// OrgMember records a user's membership and role inside an organization
type OrgMember struct {
	gorm.Model
	OrganizationID uint `gorm:"not null;index:idx_org_user,unique" json:"organization_id"`
	UserID         uint `gorm:"not null;index:idx_org_user,unique" json:"user_id"`

	Role     string    `gorm:"not null" json:"role"`
	JoinedAt time.Time `json:"joined_at"`

	// Relations
	Organization Organization `json:"-"`
	User         User         `json:"-"`
}

// CreateWithOwner inserts the organization together with its owner's
// membership row in one transaction.
func (o *Organization) CreateWithOwner(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		member := OrgMember{
			OrganizationID: o.ID,
			UserID:         o.OwnerID,
			Role:           RoleOrgAdmin,
			JoinedAt:       time.Now(),
		}
		return tx.Create(&member).Error
	})
}

// IsOrgMember reports whether the user belongs to the organization.
func IsOrgMember(db *gorm.DB, orgID, userID uint) (bool, error) {
	var count int64
	err := db.Model(&OrgMember{}).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Count(&count).Error
	return count > 0, err
}

// OrgMemberRole returns the member's role, or "" when not a member.
func OrgMemberRole(db *gorm.DB, orgID, userID uint) (string, error) {
	var member OrgMember
	err := db.Where("organization_id = ? AND user_id = ?", orgID, userID).First(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return member.Role, nil
}
