package controller

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"tracknexy/models"
	"tracknexy/utils"
)

type ProjectController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewProjectController(db *gorm.DB, logger *log.Logger) *ProjectController {
	return &ProjectController{DB: db, Logger: logger}
}

// OrgRef is the resolved shape of an organization reference
type OrgRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ProjectRef is the resolved shape of a project reference
type ProjectRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

type projectResponse struct {
	models.Project
	LeadUser     *models.UserSummary `json:"lead,omitempty"`
	Organization *OrgRef             `json:"organization,omitempty"`
}

// canActOnProject gates project mutations: the caller's project role must
// sit at or above min, unless their global role is org_admin or higher.
func canActOnProject(db *gorm.DB, projectID uint, user *models.User, min string) (bool, error) {
	if models.RoleAtLeast(user.Role, models.RoleOrgAdmin) {
		return true, nil
	}
	role, err := models.ProjectMemberRole(db, projectID, user.ID)
	if err != nil {
		return false, err
	}
	return role != "" && models.RoleAtLeast(role, min), nil
}

// CreateProject creates a project, its issue counter row and a default
// board, with the caller as lead and sole project_admin member.
func (pc *ProjectController) CreateProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Name           string `json:"name" validate:"required,min=1,max=100"`
		Key            string `json:"key" validate:"required,projectkey"`
		Description    string `json:"description" validate:"omitempty,max=500"`
		OrganizationID uint   `json:"organization_id" validate:"required"`
		BoardType      string `json:"board_type" validate:"omitempty,oneof=kanban scrum"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var org models.Organization
	if err := pc.DB.First(&org, input.OrganizationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Organization not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch organization", err)
	}

	isMember, err := models.IsOrgMember(pc.DB, org.ID, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !isMember {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You are not a member of this organization", nil)
	}

	key := strings.ToUpper(input.Key)

	// Key uniqueness is scoped to the organization
	var existing models.Project
	if err := pc.DB.Where("key = ? AND organization_id = ?", key, org.ID).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Project key must be unique within the organization", nil)
	}

	settings := models.DefaultProjectSettings()
	if input.BoardType != "" {
		settings.BoardType = input.BoardType
	}

	project := models.Project{
		Name:           input.Name,
		Key:            key,
		Description:    input.Description,
		OrganizationID: org.ID,
		LeadID:         user.ID,
		Settings:       settings,
	}

	err = pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		member := models.ProjectMember{
			ProjectID: project.ID,
			UserID:    user.ID,
			Role:      models.RoleProjectAdmin,
			JoinedAt:  time.Now(),
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		counter := models.IssueCounter{ProjectID: project.ID, NextSeq: 0}
		if err := tx.Create(&counter).Error; err != nil {
			return err
		}
		board := defaultBoard(&project)
		return tx.Create(board).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create project", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(pc.resolveProject(&project)))
}

func defaultBoard(project *models.Project) *models.Board {
	columns := []models.BoardColumn{
		{ID: uuid.New().String(), Name: "To Do", Status: models.StatusTodo, Order: 0},
		{ID: uuid.New().String(), Name: "In Progress", Status: models.StatusInProgress, Order: 1},
		{ID: uuid.New().String(), Name: "In Review", Status: models.StatusInReview, Order: 2},
		{ID: uuid.New().String(), Name: "Done", Status: models.StatusDone, Order: 3},
	}
	for i := range columns {
		columns[i].IssueIDs = []uint{}
	}
	return &models.Board{
		Name:      project.Name + " board",
		Type:      project.Settings.BoardType,
		ProjectID: project.ID,
		Columns:   columns,
		Swimlanes: models.SwimlaneConfig{Enabled: false},
	}
}

func (pc *ProjectController) resolveProject(project *models.Project) projectResponse {
	resp := projectResponse{Project: *project}

	var lead models.User
	if err := pc.DB.First(&lead, project.LeadID).Error; err == nil {
		resp.LeadUser = utils.Pointer(lead.Summary())
	}

	var org models.Organization
	if err := pc.DB.First(&org, project.OrganizationID).Error; err == nil {
		resp.Organization = &OrgRef{ID: org.ID, Name: org.Name, Slug: org.Slug}
	}

	return resp
}

// GetProjects lists projects the caller is a member of, sorted by name
func (pc *ProjectController) GetProjects(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var projects []models.Project
	err := pc.DB.
		Joins("JOIN project_members ON project_members.project_id = projects.id").
		Where("project_members.user_id = ? AND project_members.deleted_at IS NULL", user.ID).
		Order("projects.name").
		Find(&projects).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch projects", err)
	}

	resolved := make([]projectResponse, 0, len(projects))
	for i := range projects {
		resolved = append(resolved, pc.resolveProject(&projects[i]))
	}

	return c.JSON(utils.SuccessResponse(resolved))
}

// GetProject returns a single project the caller is a member of
func (pc *ProjectController) GetProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := utils.ParseUint(c.Params("id"))

	var project models.Project
	if err := pc.DB.Preload("Members").First(&project, projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch project", err)
	}

	isMember, err := models.IsProjectMember(pc.DB, project.ID, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !isMember && !models.RoleAtLeast(user.Role, models.RoleOrgAdmin) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You are not a member of this project", nil)
	}

	return c.JSON(utils.SuccessResponse(pc.resolveProject(&project)))
}

// UpdateProject renames a project or changes lead/settings. Requires
// project_admin or above.
func (pc *ProjectController) UpdateProject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := utils.ParseUint(c.Params("id"))

	var input struct {
		Name        string   `json:"name" validate:"omitempty,min=1,max=100"`
		Description *string  `json:"description"`
		LeadID      *uint    `json:"lead_id"`
		IssueTypes  []string `json:"issue_types"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var project models.Project
	if err := pc.DB.First(&project, projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch project", err)
	}

	allowed, err := canActOnProject(pc.DB, project.ID, user, models.RoleProjectAdmin)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !allowed {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient privileges", nil)
	}

	if input.Name != "" {
		project.Name = input.Name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.LeadID != nil {
		isMember, err := models.IsProjectMember(pc.DB, project.ID, *input.LeadID)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
		}
		if !isMember {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Lead must be a project member", nil)
		}
		project.LeadID = *input.LeadID
	}
	if input.IssueTypes != nil {
		for _, t := range input.IssueTypes {
			if !models.ValidIssueType(t) {
				return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown issue type: "+t, nil)
			}
		}
		project.Settings.IssueTypes = input.IssueTypes
	}

	if err := pc.DB.Save(&project).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update project", err)
	}

	return c.JSON(utils.SuccessResponse(pc.resolveProject(&project)))
}

// AddMember adds a user to the project. Requires project_admin or above.
func (pc *ProjectController) AddMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := utils.ParseUint(c.Params("id"))

	var input struct {
		UserID uint   `json:"user_id" validate:"required"`
		Role   string `json:"role" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}
	if !models.ValidRole(input.Role) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown role", nil)
	}

	var project models.Project
	if err := pc.DB.First(&project, projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch project", err)
	}

	allowed, err := canActOnProject(pc.DB, project.ID, user, models.RoleProjectAdmin)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !allowed {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient privileges", nil)
	}

	var target models.User
	if err := pc.DB.First(&target, input.UserID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
	}

	isMember, err := models.IsProjectMember(pc.DB, project.ID, target.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if isMember {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "User is already a member", nil)
	}

	member := models.ProjectMember{
		ProjectID: project.ID,
		UserID:    target.ID,
		Role:      input.Role,
		JoinedAt:  time.Now(),
	}
	if err := pc.DB.Create(&member).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add member", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(member))
}

// RemoveMember removes a user from the project. Requires project_admin or
// above. The lead cannot be removed without reassigning first.
func (pc *ProjectController) RemoveMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	projectID := utils.ParseUint(c.Params("id"))
	targetID := utils.ParseUint(c.Params("userId"))

	var project models.Project
	if err := pc.DB.First(&project, projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch project", err)
	}

	allowed, err := canActOnProject(pc.DB, project.ID, user, models.RoleProjectAdmin)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !allowed {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient privileges", nil)
	}

	if targetID == project.LeadID {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Reassign the project lead before removing them", nil)
	}

	result := pc.DB.Where("project_id = ? AND user_id = ?", project.ID, targetID).Delete(&models.ProjectMember{})
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to remove member", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Member not found", nil)
	}

	return c.SendStatus(fiber.StatusOK)
}
