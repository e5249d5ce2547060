package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	IssueTypeEpic        = "epic"
	IssueTypeStory       = "story"
	IssueTypeTask        = "task"
	IssueTypeBug         = "bug"
	IssueTypeSubTask     = "sub_task"
	IssueTypeImprovement = "improvement"
)

const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusInReview   = "in_review"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

var issueTypes = map[string]bool{
	IssueTypeEpic:        true,
	IssueTypeStory:       true,
	IssueTypeTask:        true,
	IssueTypeBug:         true,
	IssueTypeSubTask:     true,
	IssueTypeImprovement: true,
}

var issueStatuses = map[string]bool{
	StatusTodo:       true,
	StatusInProgress: true,
	StatusInReview:   true,
	StatusDone:       true,
	StatusCancelled:  true,
}

var issuePriorities = map[string]bool{
	PriorityCritical: true,
	PriorityHigh:     true,
	PriorityMedium:   true,
	PriorityLow:      true,
}

func ValidIssueType(t string) bool     { return issueTypes[t] }
func ValidIssueStatus(s string) bool   { return issueStatuses[s] }
func ValidIssuePriority(p string) bool { return issuePriorities[p] }

// TimeTracking holds estimated/logged/remaining figures in minutes
type TimeTracking struct {
	Estimated int `json:"estimated,omitempty"`
	Logged    int `json:"logged"`
	Remaining int `json:"remaining,omitempty"`
}

// Attachment is an uploaded file reference stored inline on the issue
type Attachment struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	UploadedBy uint      `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Issue is the tracked unit of work. Key is unique within its project, not
// globally: project keys repeat across organizations, so two tenants can
// each hold a DEMO-1. Key and ReporterID are immutable once assigned; update
// handlers never touch them.
type Issue struct {
	gorm.Model
	Key         string `gorm:"not null;uniqueIndex:idx_project_issue_key" json:"key"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`

	Type     string `gorm:"not null" json:"type"`
	Status   string `gorm:"default:'todo';not null;index:idx_project_status" json:"status"`
	Priority string `gorm:"default:'medium';not null" json:"priority"`

	ProjectID  uint  `gorm:"not null;index:idx_project_status;uniqueIndex:idx_project_issue_key" json:"project_id"`
	ReporterID uint  `gorm:"not null;index" json:"reporter_id"`
	AssigneeID *uint `gorm:"index" json:"assignee_id,omitempty"`
	EpicID     *uint `gorm:"index" json:"epic_id,omitempty"`
	SprintID   *uint `gorm:"index" json:"sprint_id,omitempty"`

	Labels      []string     `gorm:"type:jsonb;serializer:json" json:"labels,omitempty"`
	StoryPoints *int         `json:"story_points,omitempty"`
	Tracking    TimeTracking `gorm:"type:jsonb;serializer:json" json:"time_tracking"`
	Attachments []Attachment `gorm:"type:jsonb;serializer:json" json:"attachments,omitempty"`
	Watchers    []uint       `gorm:"type:jsonb;serializer:json" json:"watchers,omitempty"`

	CustomFields map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"custom_fields,omitempty"`

	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	// Relations
	Project  Project `json:"-"`
	Reporter User    `gorm:"foreignKey:ReporterID" json:"-"`
	Assignee *User   `gorm:"foreignKey:AssigneeID" json:"-"`
}

// IsWatching reports whether userID is on the watcher list.
func (i *Issue) IsWatching(userID uint) bool {
	for _, w := range i.Watchers {
		if w == userID {
			return true
		}
	}
	return false
}
