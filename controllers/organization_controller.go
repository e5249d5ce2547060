package controller

import (
	"errors"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"tracknexy/models"
	"tracknexy/utils"
)

type OrganizationController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewOrganizationController(db *gorm.DB, logger *log.Logger) *OrganizationController {
	return &OrganizationController{DB: db, Logger: logger}
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9-]+`)

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = slugCleaner.ReplaceAllString(slug, "")
	return strings.Trim(slug, "-")
}

// CreateOrganization creates a tenant owned by the caller. The owner is
// inserted as an org_admin member in the same transaction.
func (oc *OrganizationController) CreateOrganization(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Name        string `json:"name" validate:"required,min=2,max=100"`
		Slug        string `json:"slug" validate:"omitempty,min=2,max=50"`
		Description string `json:"description" validate:"omitempty,max=500"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	slug := input.Slug
	if slug == "" {
		slug = slugify(input.Name)
	} else {
		slug = slugify(slug)
	}
	if slug == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "slug is required", nil)
	}

	// Slug uniqueness is global
	var existing models.Organization
	if err := oc.DB.Where("slug = ?", slug).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Organization slug is already taken", nil)
	}

	org := models.Organization{
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
		OwnerID:     user.ID,
	}

	if err := org.CreateWithOwner(oc.DB); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Organization slug is already taken", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create organization", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(org))
}

// GetOrganizations lists organizations the caller belongs to
func (oc *OrganizationController) GetOrganizations(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var orgs []models.Organization
	err := oc.DB.
		Joins("JOIN org_members ON org_members.organization_id = organizations.id").
		Where("org_members.user_id = ? AND org_members.deleted_at IS NULL", user.ID).
		Order("organizations.name").
		Find(&orgs).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch organizations", err)
	}

	return c.JSON(utils.SuccessResponse(orgs))
}

type orgMemberResponse struct {
	User     models.UserSummary `json:"user"`
	Role     string             `json:"role"`
	JoinedAt time.Time          `json:"joined_at"`
}

// GetOrganization returns one organization with members resolved
func (oc *OrganizationController) GetOrganization(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	orgID := utils.ParseUint(c.Params("id"))

	var org models.Organization
	if err := oc.DB.First(&org, orgID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Organization not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch organization", err)
	}

	isMember, err := models.IsOrgMember(oc.DB, org.ID, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !isMember && !models.RoleAtLeast(user.Role, models.RoleSuperAdmin) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You are not a member of this organization", nil)
	}

	var members []models.OrgMember
	if err := oc.DB.Preload("User").Where("organization_id = ?", org.ID).Find(&members).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch members", err)
	}

	resolved := make([]orgMemberResponse, 0, len(members))
	for _, m := range members {
		resolved = append(resolved, orgMemberResponse{
			User:     m.User.Summary(),
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		})
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"organization": org,
		"members":      resolved,
	})
}

// AddMember adds a user to the organization. Requires org_admin or above.
func (oc *OrganizationController) AddMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	orgID := utils.ParseUint(c.Params("id"))

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

	var org models.Organization
	if err := oc.DB.First(&org, orgID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Organization not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch organization", err)
	}

	callerRole, err := models.OrgMemberRole(oc.DB, org.ID, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !models.RoleAtLeast(callerRole, models.RoleOrgAdmin) && !models.RoleAtLeast(user.Role, models.RoleSuperAdmin) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Insufficient privileges", nil)
	}

	var target models.User
	if err := oc.DB.First(&target, input.UserID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
	}

	existing, err := models.IsOrgMember(oc.DB, org.ID, target.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if existing {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "User is already a member", nil)
	}

	member := models.OrgMember{
		OrganizationID: org.ID,
		UserID:         target.ID,
		Role:           input.Role,
		JoinedAt:       time.Now(),
	}
	if err := oc.DB.Create(&member).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add member", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(member))
}
