package models

import (
	"gorm.io/gorm"
)

// CommentAttachment is a file reference carried by a comment
type CommentAttachment struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// Comment belongs to an issue
type Comment struct {
	gorm.Model
	IssueID  uint   `gorm:"not null;index" json:"issue_id"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Content  string `gorm:"not null" json:"content"`

	Mentions    []uint              `gorm:"type:jsonb;serializer:json" json:"mentions,omitempty"`
	Attachments []CommentAttachment `gorm:"type:jsonb;serializer:json" json:"attachments,omitempty"`

	// Edited flips on the first content update and never resets.
	Edited bool `gorm:"default:false" json:"edited"`

	// Relations
	Issue  Issue `json:"-"`
	Author User  `gorm:"foreignKey:AuthorID" json:"-"`
}
