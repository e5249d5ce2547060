package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"tracknexy/models"
	"tracknexy/utils"
)

type BoardController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewBoardController(db *gorm.DB, logger *log.Logger) *BoardController {
	return &BoardController{DB: db, Logger: logger}
}

type boardIssue struct {
	ID          uint                `json:"id"`
	Key         string              `json:"key"`
	Title       string              `json:"title"`
	Type        string              `json:"type"`
	Status      string              `json:"status"`
	Priority    string              `json:"priority"`
	StoryPoints *int                `json:"story_points,omitempty"`
	EpicID      *uint               `json:"epic_id,omitempty"`
	Assignee    *models.UserSummary `json:"assignee,omitempty"`
}

type boardColumnView struct {
	models.BoardColumn
	Issues []boardIssue `json:"issues"`
}

type boardResponse struct {
	models.Board
	ColumnViews []boardColumnView `json:"column_views"`
	Swimlane    map[string][]uint `json:"swimlane_groups,omitempty"`
}

// GetBoard returns the project's board with each column's issues resolved.
// When swimlanes are enabled the issues are additionally grouped by the
// configured dimension.
func (bc *BoardController) GetBoard(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := utils.ParseUint(c.Params("id"))

	isMember, err := models.IsProjectMember(bc.DB, projectID, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !isMember && !models.RoleAtLeast(user.Role, models.RoleOrgAdmin) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You are not a member of this project", nil)
	}

	var board models.Board
	if err := bc.DB.Where("project_id = ?", projectID).First(&board).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Board not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch board", err)
	}

	var issues []models.Issue
	if err := bc.DB.Preload("Assignee").Where("project_id = ?", projectID).Find(&issues).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch issues", err)
	}

	byID := make(map[uint]*models.Issue, len(issues))
	for i := range issues {
		byID[issues[i].ID] = &issues[i]
	}

	resp := boardResponse{Board: board}
	for _, col := range board.Columns {
		view := boardColumnView{BoardColumn: col, Issues: []boardIssue{}}
		for _, id := range col.IssueIDs {
			issue, ok := byID[id]
			if !ok {
				continue
			}
			bi := boardIssue{
				ID:          issue.ID,
				Key:         issue.Key,
				Title:       issue.Title,
				Type:        issue.Type,
				Status:      issue.Status,
				Priority:    issue.Priority,
				StoryPoints: issue.StoryPoints,
				EpicID:      issue.EpicID,
			}
			if issue.Assignee != nil {
				bi.Assignee = utils.Pointer(issue.Assignee.Summary())
			}
			view.Issues = append(view.Issues, bi)
		}
		resp.ColumnViews = append(resp.ColumnViews, view)
	}

	if board.Swimlanes.Enabled {
		resp.Swimlane = groupSwimlanes(board.Swimlanes.Type, issues)
	}

	return c.JSON(utils.SuccessResponse(resp))
}

func groupSwimlanes(dimension string, issues []models.Issue) map[string][]uint {
	groups := make(map[string][]uint)
	for i := range issues {
		issue := &issues[i]
		key := "none"
		switch dimension {
		case models.SwimlaneAssignee:
			if issue.Assignee != nil {
				key = issue.Assignee.Name
			} else {
				key = "unassigned"
			}
		case models.SwimlanePriority:
			key = issue.Priority
		case models.SwimlaneEpic:
			if issue.EpicID != nil {
				key = "epic-" + utils.FormatUint(*issue.EpicID)
			} else {
				key = "no-epic"
			}
		}
		groups[key] = append(groups[key], issue.ID)
	}
	return groups
}

// UpdateColumns replaces the board's column layout. Requires project_admin
// or above. Issue placements survive by id where columns carry them.
func (bc *BoardController) UpdateColumns(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	boardID := utils.ParseUint(c.Params("id"))

	var input struct {
		Columns  []models.BoardColumn   `json:"columns" validate:"required,min=1"`
		Swimlane *models.SwimlaneConfig `json:"swimlanes"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var board models.Board
	if err := bc.DB.First(&board, boardID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Board not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch board", err)
	}

	allowed, err := canActOnProject(bc.DB, board.ProjectID, user, models.RoleProjectAdmin)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !allowed {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient privileges", nil)
	}

	for i := range input.Columns {
		col := &input.Columns[i]
		if col.Status != "" && !models.ValidIssueStatus(col.Status) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown status: "+col.Status, nil)
		}
		if col.WIPLimit != nil && *col.WIPLimit < 1 {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "WIP limit must be positive", nil)
		}
		if col.ID == "" {
			col.ID = uuid.New().String()
		}
		col.Order = i
		if col.IssueIDs == nil {
			col.IssueIDs = []uint{}
		}
	}

	if input.Swimlane != nil {
		if input.Swimlane.Enabled {
			switch input.Swimlane.Type {
			case models.SwimlaneAssignee, models.SwimlanePriority, models.SwimlaneEpic:
			default:
				return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown swimlane type", nil)
			}
		}
		board.Swimlanes = *input.Swimlane
	}

	board.Columns = input.Columns
	if err := bc.DB.Save(&board).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update board", err)
	}

	return c.JSON(utils.SuccessResponse(board))
}

// MoveIssue places an issue in a column at a position, enforcing the
// column's WIP limit and syncing the issue status to the column's mapped
// status.
func (bc *BoardController) MoveIssue(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	boardID := utils.ParseUint(c.Params("id"))

	var input struct {
		IssueID  uint   `json:"issue_id" validate:"required"`
		ColumnID string `json:"column_id" validate:"required"`
		Position int    `json:"position"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var board models.Board
	if err := bc.DB.First(&board, boardID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Board not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch board", err)
	}

	isMember, err := models.IsProjectMember(bc.DB, board.ProjectID, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !isMember {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You are not a member of this project", nil)
	}

	var issue models.Issue
	if err := bc.DB.Where("id = ? AND project_id = ?", input.IssueID, board.ProjectID).First(&issue).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Issue not found on this board", nil)
	}

	target := board.ColumnByID(input.ColumnID)
	if target == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Column not found", nil)
	}

	alreadyThere := false
	for _, id := range target.IssueIDs {
		if id == issue.ID {
			alreadyThere = true
			break
		}
	}
	if target.WIPLimit != nil && !alreadyThere && len(target.IssueIDs) >= *target.WIPLimit {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Column WIP limit reached", nil)
	}

	board.RemoveIssue(issue.ID)

	pos := input.Position
	if pos < 0 || pos > len(target.IssueIDs) {
		pos = len(target.IssueIDs)
	}
	target.IssueIDs = append(target.IssueIDs, 0)
	copy(target.IssueIDs[pos+1:], target.IssueIDs[pos:])
	target.IssueIDs[pos] = issue.ID

	err = bc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&board).Error; err != nil {
			return err
		}
		if target.Status != "" && target.Status != issue.Status {
			issue.Status = target.Status
			if issue.Status == models.StatusDone {
				now := time.Now()
				issue.ResolvedAt = &now
			} else {
				issue.ResolvedAt = nil
			}
			return tx.Save(&issue).Error
		}
		return nil
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to move issue", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"board": board,
		"issue": issue,
	}))
}
