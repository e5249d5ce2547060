package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"tracknexy/models"
	"tracknexy/utils"
)

type SprintController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewSprintController(db *gorm.DB, logger *log.Logger) *SprintController {
	return &SprintController{DB: db, Logger: logger}
}

// CreateSprint creates a planned sprint for a scrum project
func (sc *SprintController) CreateSprint(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := utils.ParseUint(c.Params("id"))

	var input struct {
		Name      string    `json:"name" validate:"required,min=1,max=100"`
		StartDate time.Time `json:"start_date" validate:"required"`
		EndDate   time.Time `json:"end_date" validate:"required"`
		Goal      string    `json:"goal" validate:"omitempty,max=500"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}
	if !input.EndDate.After(input.StartDate) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "end_date must be after start_date", nil)
	}

	var project models.Project
	if err := sc.DB.First(&project, projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch project", err)
	}

	if project.Settings.BoardType != models.BoardTypeScrum {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Sprints require a scrum project", nil)
	}

	allowed, err := canActOnProject(sc.DB, project.ID, user, models.RoleTeamLead)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !allowed {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient privileges", nil)
	}

	sprint := models.Sprint{
		Name:      input.Name,
		ProjectID: project.ID,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		Goal:      input.Goal,
		Status:    models.SprintPlanned,
	}

	if err := sc.DB.Create(&sprint).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create sprint", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(sprint))
}

// GetSprints lists a project's sprints, newest first
func (sc *SprintController) GetSprints(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := utils.ParseUint(c.Params("id"))

	isMember, err := models.IsProjectMember(sc.DB, projectID, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !isMember && !models.RoleAtLeast(user.Role, models.RoleOrgAdmin) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You are not a member of this project", nil)
	}

	var sprints []models.Sprint
	if err := sc.DB.Where("project_id = ?", projectID).Order("start_date DESC").Find(&sprints).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch sprints", err)
	}

	return c.JSON(utils.SuccessResponse(sprints))
}

func (sc *SprintController) loadSprint(c *fiber.Ctx, sprintID uint, minRole string) (*models.Sprint, error) {
	user := c.Locals("user").(*models.User)

	var sprint models.Sprint
	if err := sc.DB.First(&sprint, sprintID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorResponse(c, fiber.StatusNotFound, "Sprint not found", nil)
		}
		return nil, utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch sprint", err)
	}

	allowed, err := canActOnProject(sc.DB, sprint.ProjectID, user, minRole)
	if err != nil {
		return nil, utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !allowed {
		return nil, utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient privileges", nil)
	}

	return &sprint, nil
}

// StartSprint moves a planned sprint to active. One active sprint per
// project.
func (sc *SprintController) StartSprint(c *fiber.Ctx) error {
	sprint, errResp := sc.loadSprint(c, utils.ParseUint(c.Params("id")), models.RoleTeamLead)
	if sprint == nil {
		return errResp
	}

	if sprint.Status != models.SprintPlanned {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Only a planned sprint can start", nil)
	}

	var active int64
	if err := sc.DB.Model(&models.Sprint{}).
		Where("project_id = ? AND status = ?", sprint.ProjectID, models.SprintActive).
		Count(&active).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check sprints", err)
	}
	if active > 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Another sprint is already active", nil)
	}

	sprint.Status = models.SprintActive
	if err := sc.DB.Save(sprint).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to start sprint", err)
	}

	return c.JSON(utils.SuccessResponse(sprint))
}

// CompleteSprint closes an active sprint. Velocity is the sum of story
// points of issues done inside it; unfinished issues return to the
// backlog.
func (sc *SprintController) CompleteSprint(c *fiber.Ctx) error {
	sprint, errResp := sc.loadSprint(c, utils.ParseUint(c.Params("id")), models.RoleTeamLead)
	if sprint == nil {
		return errResp
	}

	if sprint.Status != models.SprintActive {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Only an active sprint can complete", nil)
	}

	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		var issues []models.Issue
		if err := tx.Where("sprint_id = ?", sprint.ID).Find(&issues).Error; err != nil {
			return err
		}

		velocity := 0
		for _, issue := range issues {
			if issue.Status == models.StatusDone && issue.StoryPoints != nil {
				velocity += *issue.StoryPoints
			}
		}

		// Unfinished work leaves the sprint
		if err := tx.Model(&models.Issue{}).
			Where("sprint_id = ? AND status NOT IN ?", sprint.ID, []string{models.StatusDone, models.StatusCancelled}).
			Update("sprint_id", nil).Error; err != nil {
			return err
		}

		now := time.Now()
		sprint.Status = models.SprintCompleted
		sprint.Velocity = &velocity
		sprint.CompletedAt = &now
		return tx.Save(sprint).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to complete sprint", err)
	}

	return c.JSON(utils.SuccessResponse(sprint))
}

// AddIssues assigns issues to the sprint
func (sc *SprintController) AddIssues(c *fiber.Ctx) error {
	sprint, errResp := sc.loadSprint(c, utils.ParseUint(c.Params("id")), models.RoleDeveloper)
	if sprint == nil {
		return errResp
	}

	if sprint.Status == models.SprintCompleted {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Sprint is completed", nil)
	}

	var input struct {
		IssueIDs []uint `json:"issue_ids" validate:"required,min=1"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var count int64
	if err := sc.DB.Model(&models.Issue{}).
		Where("id IN ? AND project_id = ?", input.IssueIDs, sprint.ProjectID).
		Count(&count).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check issues", err)
	}
	if count != int64(len(input.IssueIDs)) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "All issues must belong to the sprint's project", nil)
	}

	if err := sc.DB.Model(&models.Issue{}).
		Where("id IN ?", input.IssueIDs).
		Update("sprint_id", sprint.ID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to assign issues", err)
	}

	return c.JSON(utils.SuccessResponse(sprint))
}
