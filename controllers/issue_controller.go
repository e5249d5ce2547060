package controller

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"tracknexy/models"
	"tracknexy/utils"
)

// issueListLimit bounds every issue listing to keep responses small.
const issueListLimit = 100

type IssueController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewIssueController(db *gorm.DB, logger *log.Logger) *IssueController {
	return &IssueController{DB: db, Logger: logger}
}

// issueResponse carries the issue with its references resolved to summary
// objects. The raw ids stay present; the resolved fields are additions, so
// a caller always knows which variant it is holding.
type issueResponse struct {
	models.Issue
	Reporter *models.UserSummary `json:"reporter,omitempty"`
	Assignee *models.UserSummary `json:"assignee,omitempty"`
	Project  *ProjectRef         `json:"project,omitempty"`
}

func (ic *IssueController) resolveIssue(issue *models.Issue) issueResponse {
	resp := issueResponse{Issue: *issue}

	var reporter models.User
	if err := ic.DB.First(&reporter, issue.ReporterID).Error; err == nil {
		resp.Reporter = utils.Pointer(reporter.Summary())
	}
	if issue.AssigneeID != nil {
		var assignee models.User
		if err := ic.DB.First(&assignee, *issue.AssigneeID).Error; err == nil {
			resp.Assignee = utils.Pointer(assignee.Summary())
		}
	}
	var project models.Project
	if err := ic.DB.First(&project, issue.ProjectID).Error; err == nil {
		resp.Project = &ProjectRef{ID: project.ID, Name: project.Name, Key: project.Key}
	}

	return resp
}

// CreateIssue creates an issue with an atomically assigned key, the caller
// as reporter and status todo.
func (ic *IssueController) CreateIssue(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Title       string   `json:"title" validate:"required,min=1,max=255"`
		Description string   `json:"description"`
		Type        string   `json:"type" validate:"required"`
		Priority    string   `json:"priority"`
		ProjectID   uint     `json:"project_id" validate:"required"`
		AssigneeID  *uint    `json:"assignee_id"`
		EpicID      *uint    `json:"epic_id"`
		SprintID    *uint    `json:"sprint_id"`
		Labels      []string `json:"labels"`
		StoryPoints *int     `json:"story_points"`
		Estimated   int      `json:"estimated"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}
	if !models.ValidIssueType(input.Type) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown issue type", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidIssuePriority(priority) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown priority", nil)
	}

	var project models.Project
	if err := ic.DB.First(&project, input.ProjectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch project", err)
	}

	isMember, err := models.IsProjectMember(ic.DB, project.ID, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !isMember {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You are not a member of this project", nil)
	}

	typeAllowed := false
	for _, t := range project.Settings.IssueTypes {
		if t == input.Type {
			typeAllowed = true
			break
		}
	}
	if !typeAllowed {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Issue type not enabled for this project", nil)
	}

	if input.AssigneeID != nil {
		assigneeMember, err := models.IsProjectMember(ic.DB, project.ID, *input.AssigneeID)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
		}
		if !assigneeMember {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Assignee must be a project member", nil)
		}
	}

	if input.EpicID != nil {
		var epic models.Issue
		if err := ic.DB.Where("id = ? AND type = ? AND project_id = ?", *input.EpicID, models.IssueTypeEpic, project.ID).First(&epic).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Epic not found in this project", nil)
		}
	}
	if input.SprintID != nil {
		var sprint models.Sprint
		if err := ic.DB.Where("id = ? AND project_id = ?", *input.SprintID, project.ID).First(&sprint).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Sprint not found in this project", nil)
		}
	}

	var issue models.Issue
	err = ic.DB.Transaction(func(tx *gorm.DB) error {
		seq, err := models.NextIssueSeq(tx, project.ID)
		if err != nil {
			return err
		}

		issue = models.Issue{
			Key:         fmt.Sprintf("%s-%d", project.Key, seq),
			Title:       input.Title,
			Description: input.Description,
			Type:        input.Type,
			Status:      models.StatusTodo,
			Priority:    priority,
			ProjectID:   project.ID,
			ReporterID:  user.ID,
			AssigneeID:  input.AssigneeID,
			EpicID:      input.EpicID,
			SprintID:    input.SprintID,
			Labels:      input.Labels,
			StoryPoints: input.StoryPoints,
			Tracking:    models.TimeTracking{Estimated: input.Estimated, Remaining: input.Estimated},
			Watchers:    []uint{user.ID},
		}
		return tx.Create(&issue).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create issue", err)
	}

	return c.Status(fiber.StatusCreated).JSON(ic.resolveIssue(&issue))
}

// GetIssues lists issues newest first, optionally narrowed by project,
// status, priority, assignee and a free-text search over key, title and
// description. Results cap at 100.
func (ic *IssueController) GetIssues(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	query := ic.DB.Model(&models.Issue{})

	if projectID := c.Query("projectId"); projectID != "" {
		pid := utils.ParseUint(projectID)
		isMember, err := models.IsProjectMember(ic.DB, pid, user.ID)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
		}
		if !isMember && !models.RoleAtLeast(user.Role, models.RoleOrgAdmin) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "You are not a member of this project", nil)
		}
		query = query.Where("issues.project_id = ?", pid)
	} else {
		// Without an explicit project, only issues from the caller's
		// projects are visible.
		query = query.
			Joins("JOIN project_members ON project_members.project_id = issues.project_id").
			Where("project_members.user_id = ? AND project_members.deleted_at IS NULL", user.ID)
	}

	// Unknown enum values simply match nothing; they are not an error.
	if status := c.Query("status"); status != "" {
		query = query.Where("issues.status = ?", status)
	}
	if priority := c.Query("priority"); priority != "" {
		query = query.Where("issues.priority = ?", priority)
	}
	if assigneeID := c.Query("assigneeId"); assigneeID != "" {
		query = query.Where("issues.assignee_id = ?", utils.ParseUint(assigneeID))
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("issues.key LIKE ? OR issues.title LIKE ? OR issues.description LIKE ?", like, like, like)
	}

	var issues []models.Issue
	if err := query.Order("issues.created_at DESC").Limit(issueListLimit).Find(&issues).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch issues", err)
	}

	resolved := make([]issueResponse, 0, len(issues))
	for i := range issues {
		resolved = append(resolved, ic.resolveIssue(&issues[i]))
	}

	return c.JSON(resolved)
}

// GetIssue returns a single issue with references resolved
func (ic *IssueController) GetIssue(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	issueID := utils.ParseUint(c.Params("id"))

	var issue models.Issue
	if err := ic.DB.First(&issue, issueID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Issue not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch issue", err)
	}

	isMember, err := models.IsProjectMember(ic.DB, issue.ProjectID, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !isMember && !models.RoleAtLeast(user.Role, models.RoleOrgAdmin) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You are not a member of this project", nil)
	}

	return c.JSON(ic.resolveIssue(&issue))
}

// UpdateIssue mutates status, assignee and other fields. Key and reporter
// are immutable. Moving to done stamps ResolvedAt; leaving done clears it.
func (ic *IssueController) UpdateIssue(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	issueID := utils.ParseUint(c.Params("id"))

	var input struct {
		Title       *string   `json:"title" validate:"omitempty,min=1,max=255"`
		Description *string   `json:"description"`
		Status      *string   `json:"status"`
		Priority    *string   `json:"priority"`
		AssigneeID  *uint     `json:"assignee_id"`
		Unassign    bool      `json:"unassign"`
		EpicID      *uint     `json:"epic_id"`
		SprintID    *uint     `json:"sprint_id"`
		Labels      *[]string `json:"labels"`
		StoryPoints *int      `json:"story_points"`
		Logged      *int      `json:"logged"`
		Remaining   *int      `json:"remaining"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var issue models.Issue
	if err := ic.DB.First(&issue, issueID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Issue not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch issue", err)
	}

	isMember, err := models.IsProjectMember(ic.DB, issue.ProjectID, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !isMember {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You are not a member of this project", nil)
	}

	if input.Status != nil {
		if !models.ValidIssueStatus(*input.Status) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown status", nil)
		}
		wasDone := issue.Status == models.StatusDone
		issue.Status = *input.Status
		if *input.Status == models.StatusDone && !wasDone {
			now := time.Now()
			issue.ResolvedAt = &now
		} else if *input.Status != models.StatusDone {
			issue.ResolvedAt = nil
		}
	}
	if input.Priority != nil {
		if !models.ValidIssuePriority(*input.Priority) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown priority", nil)
		}
		issue.Priority = *input.Priority
	}
	if input.Title != nil {
		issue.Title = *input.Title
	}
	if input.Description != nil {
		issue.Description = *input.Description
	}
	if input.Unassign {
		issue.AssigneeID = nil
	} else if input.AssigneeID != nil {
		assigneeMember, err := models.IsProjectMember(ic.DB, issue.ProjectID, *input.AssigneeID)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
		}
		if !assigneeMember {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Assignee must be a project member", nil)
		}
		issue.AssigneeID = input.AssigneeID
	}
	if input.EpicID != nil {
		var epic models.Issue
		if err := ic.DB.Where("id = ? AND type = ? AND project_id = ?", *input.EpicID, models.IssueTypeEpic, issue.ProjectID).First(&epic).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Epic not found in this project", nil)
		}
		issue.EpicID = input.EpicID
	}
	if input.SprintID != nil {
		var sprint models.Sprint
		if err := ic.DB.Where("id = ? AND project_id = ?", *input.SprintID, issue.ProjectID).First(&sprint).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Sprint not found in this project", nil)
		}
		issue.SprintID = input.SprintID
	}
	if input.Labels != nil {
		issue.Labels = *input.Labels
	}
	if input.StoryPoints != nil {
		issue.StoryPoints = input.StoryPoints
	}
	if input.Logged != nil {
		issue.Tracking.Logged = *input.Logged
	}
	if input.Remaining != nil {
		issue.Tracking.Remaining = *input.Remaining
	}

	if err := ic.DB.Save(&issue).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update issue", err)
	}

	return c.JSON(ic.resolveIssue(&issue))
}

// AddWatcher puts the caller on the issue's watcher list
func (ic *IssueController) AddWatcher(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	issueID := utils.ParseUint(c.Params("id"))

	var issue models.Issue
	if err := ic.DB.First(&issue, issueID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Issue not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch issue", err)
	}

	isMember, err := models.IsProjectMember(ic.DB, issue.ProjectID, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !isMember {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You are not a member of this project", nil)
	}

	if !issue.IsWatching(user.ID) {
		issue.Watchers = append(issue.Watchers, user.ID)
		if err := ic.DB.Save(&issue).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update watchers", err)
		}
	}

	return c.JSON(utils.SuccessResponse(issue.Watchers))
}

// RemoveWatcher takes the caller off the issue's watcher list
func (ic *IssueController) RemoveWatcher(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	issueID := utils.ParseUint(c.Params("id"))

	var issue models.Issue
	if err := ic.DB.First(&issue, issueID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Issue not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch issue", err)
	}

	isMember, err := models.IsProjectMember(ic.DB, issue.ProjectID, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !isMember {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You are not a member of this project", nil)
	}

	watchers := issue.Watchers[:0]
	for _, w := range issue.Watchers {
		if w != user.ID {
			watchers = append(watchers, w)
		}
	}
	issue.Watchers = watchers
	if err := ic.DB.Save(&issue).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update watchers", err)
	}

	return c.JSON(utils.SuccessResponse(issue.Watchers))
}
