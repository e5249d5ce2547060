package models

import (
	"gorm.io/gorm"
)

const (
	SwimlaneAssignee = "assignee"
	SwimlanePriority = "priority"
	SwimlaneEpic     = "epic"
)

// BoardColumn maps a workflow stage to a set of issue ids. Columns live as
// JSON on the board, in display order.
type BoardColumn struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Order    int    `json:"order"`
	WIPLimit *int   `json:"wip_limit,omitempty"`
	IssueIDs []uint `json:"issue_ids"`
}

// SwimlaneConfig is the optional row grouping of a board
type SwimlaneConfig struct {
	Type    string `json:"type,omitempty"` // assignee, priority, epic
	Enabled bool   `json:"enabled"`
}

// Board is the columnar view over a project's issues
type Board struct {
	gorm.Model
	Name      string `gorm:"not null" json:"name"`
	Type      string `gorm:"not null" json:"type"` // kanban, scrum
	ProjectID uint   `gorm:"not null;index" json:"project_id"`

	Columns   []BoardColumn          `gorm:"type:jsonb;serializer:json" json:"columns"`
	Swimlanes SwimlaneConfig         `gorm:"type:jsonb;serializer:json" json:"swimlanes"`
	Filters   map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"filters,omitempty"`

	// Relations
	Project Project `json:"-"`
}

// ColumnByID returns a pointer into Columns, or nil.
func (b *Board) ColumnByID(id string) *BoardColumn {
	for i := range b.Columns {
		if b.Columns[i].ID == id {
			return &b.Columns[i]
		}
	}
	return nil
}

// RemoveIssue drops the issue from whichever column holds it.
func (b *Board) RemoveIssue(issueID uint) {
	for i := range b.Columns {
		col := &b.Columns[i]
		for j, id := range col.IssueIDs {
			if id == issueID {
				col.IssueIDs = append(col.IssueIDs[:j], col.IssueIDs[j+1:]...)
				return
			}
		}
	}
}
