package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	SprintPlanned   = "planned"
	SprintActive    = "active"
	SprintCompleted = "completed"
)

// Sprint is a time-boxed set of issues belonging to a project
type Sprint struct {
	gorm.Model
	Name      string `gorm:"not null" json:"name"`
	ProjectID uint   `gorm:"not null;index" json:"project_id"`

	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`
	Goal      string    `json:"goal"`

	Status string `gorm:"default:'planned';not null" json:"status"`

	// Velocity is the sum of story points of issues done at completion,
	// computed once when the sprint completes.
	Velocity    *int       `json:"velocity,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Relations
	Project Project `json:"-"`
	Issues  []Issue `gorm:"foreignKey:SprintID" json:"issues,omitempty"`
}
