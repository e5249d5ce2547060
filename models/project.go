package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	BoardTypeKanban = "kanban"
	BoardTypeScrum  = "scrum"
)

// ProjectSettings enumerates what a project allows, stored as JSON
type ProjectSettings struct {
	IssueTypes []string `json:"issue_types"`
	BoardType  string   `json:"board_type"`
}

// DefaultProjectSettings mirrors what a fresh project starts with.
func DefaultProjectSettings() ProjectSettings {
	return ProjectSettings{
		IssueTypes: []string{IssueTypeEpic, IssueTypeStory, IssueTypeTask, IssueTypeBug},
		BoardType:  BoardTypeKanban,
	}
}

// Project belongs to exactly one organization. Its key is the issue-key
// prefix and is unique within the organization (not globally).
type Project struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Key         string `gorm:"not null;index:idx_org_key,unique" json:"key"`
	Description string `json:"description"`

	OrganizationID uint `gorm:"not null;index:idx_org_key,unique" json:"organization_id"`
	LeadID         uint `gorm:"not null;index" json:"lead_id"`

	Settings ProjectSettings `gorm:"type:jsonb;serializer:json" json:"settings"`

	// Relations
	Organization Organization    `json:"-"`
	Lead         User            `gorm:"foreignKey:LeadID" json:"-"`
	Members      []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
}

// ProjectMember records membership and a role string within a project
type ProjectMember struct {
	gorm.Model
	ProjectID uint `gorm:"not null;index:idx_project_user,unique" json:"project_id"`
	UserID    uint `gorm:"not null;index:idx_project_user,unique" json:"user_id"`

	Role     string    `gorm:"not null" json:"role"`
	JoinedAt time.Time `json:"joined_at"`

	// Relations
	Project Project `json:"-"`
	User    User    `json:"-"`
}

// IssueCounter holds the per-project issue sequence. It is bumped with a
// single atomic upsert, never read-then-written.
type IssueCounter struct {
	ProjectID uint  `gorm:"primaryKey" json:"project_id"`
	NextSeq   int64 `gorm:"not null;default:0" json:"next_seq"`
}

// NextIssueSeq atomically increments and returns the project's issue
// sequence. The upsert form keeps concurrent creations from ever observing
// the same value and seeds the counter for projects that predate it.
func NextIssueSeq(db *gorm.DB, projectID uint) (int64, error) {
	var seq int64
	err := db.Raw(`
		INSERT INTO issue_counters (project_id, next_seq) VALUES (?, 1)
		ON CONFLICT (project_id) DO UPDATE SET next_seq = issue_counters.next_seq + 1
		RETURNING next_seq`, projectID).Scan(&seq).Error
	return seq, err
}

// IsProjectMember reports whether the user belongs to the project.
func IsProjectMember(db *gorm.DB, projectID, userID uint) (bool, error) {
	var count int64
	err := db.Model(&ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

// ProjectMemberRole returns the member's role, or "" when not a member.
func ProjectMemberRole(db *gorm.DB, projectID, userID uint) (string, error) {
	var member ProjectMember
	err := db.Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return member.Role, nil
}
