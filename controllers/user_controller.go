package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"tracknexy/models"
	"tracknexy/utils"
)

type UserController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewUserController(db *gorm.DB, logger *log.Logger) *UserController {
	return &UserController{DB: db, Logger: logger}
}

// UpdateProfile updates the caller's display name and avatar
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Name      string  `json:"name" validate:"omitempty,min=2,max=100"`
		AvatarURL *string `json:"avatar_url"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.AvatarURL != nil {
		user.AvatarURL = input.AvatarURL
	}

	if err := uc.DB.Save(user).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update profile", err)
	}

	return c.JSON(utils.SuccessResponse(user))
}

// UpdatePreferences replaces keys in the caller's preference map
func (uc *UserController) UpdatePreferences(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input map[string]interface{}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if user.Preferences == nil {
		user.Preferences = make(map[string]interface{})
	}
	for k, v := range input {
		if v == nil {
			delete(user.Preferences, k)
			continue
		}
		user.Preferences[k] = v
	}

	if err := uc.DB.Save(user).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update preferences", err)
	}

	return c.JSON(utils.SuccessResponse(user.Preferences))
}
