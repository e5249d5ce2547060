package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"tracknexy/models"
	"tracknexy/utils"
)

type CommentController struct {
	DB     *gorm.DB
	Mailer *utils.Mailer
	Logger *log.Logger
}

func NewCommentController(db *gorm.DB, mailer *utils.Mailer, logger *log.Logger) *CommentController {
	return &CommentController{DB: db, Mailer: mailer, Logger: logger}
}

type commentResponse struct {
	models.Comment
	Author *models.UserSummary `json:"author,omitempty"`
}

func (cc *CommentController) loadIssueForMember(c *fiber.Ctx, issueID uint) (*models.Issue, error) {
	user := c.Locals("user").(*models.User)

	var issue models.Issue
	if err := cc.DB.First(&issue, issueID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorResponse(c, fiber.StatusNotFound, "Issue not found", nil)
		}
		return nil, utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch issue", err)
	}

	isMember, err := models.IsProjectMember(cc.DB, issue.ProjectID, user.ID)
	if err != nil {
		return nil, utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}
	if !isMember {
		return nil, utils.ErrorResponse(c, fiber.StatusForbidden, "You are not a member of this project", nil)
	}

	return &issue, nil
}

// GetComments lists an issue's comments oldest first, authors resolved
func (cc *CommentController) GetComments(c *fiber.Ctx) error {
	issueID := utils.ParseUint(c.Params("id"))

	issue, errResp := cc.loadIssueForMember(c, issueID)
	if issue == nil {
		return errResp
	}

	var comments []models.Comment
	if err := cc.DB.Preload("Author").Where("issue_id = ?", issue.ID).Order("created_at").Find(&comments).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch comments", err)
	}

	resolved := make([]commentResponse, 0, len(comments))
	for i := range comments {
		resolved = append(resolved, commentResponse{
			Comment: comments[i],
			Author:  utils.Pointer(comments[i].Author.Summary()),
		})
	}

	return c.JSON(utils.SuccessResponse(resolved))
}

// CreateComment adds a comment; mentioned users get a best-effort email.
func (cc *CommentController) CreateComment(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	issueID := utils.ParseUint(c.Params("id"))

	issue, errResp := cc.loadIssueForMember(c, issueID)
	if issue == nil {
		return errResp
	}

	var input struct {
		Content     string                     `json:"content" validate:"required,min=1"`
		Mentions    []uint                     `json:"mentions"`
		Attachments []models.CommentAttachment `json:"attachments"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	// Mentions must be real users
	var mentioned []models.User
	if len(input.Mentions) > 0 {
		if err := cc.DB.Where("id IN ?", input.Mentions).Find(&mentioned).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check mentions", err)
		}
		if len(mentioned) != len(input.Mentions) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Mentioned user not found", nil)
		}
	}

	comment := models.Comment{
		IssueID:     issue.ID,
		AuthorID:    user.ID,
		Content:     input.Content,
		Mentions:    input.Mentions,
		Attachments: input.Attachments,
	}

	if err := cc.DB.Create(&comment).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create comment", err)
	}

	// Notification failures never fail the write
	for _, m := range mentioned {
		if m.ID == user.ID {
			continue
		}
		if err := cc.Mailer.SendMentionEmail(m.Email, user.Name, issue.Key, issue.Title, comment.Content); err != nil {
			cc.Logger.Printf("Failed to send mention email to %s: %v", m.Email, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(commentResponse{
		Comment: comment,
		Author:  utils.Pointer(user.Summary()),
	}))
}

// UpdateComment edits a comment's content. Author only; sets the edited
// flag.
func (cc *CommentController) UpdateComment(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	commentID := utils.ParseUint(c.Params("id"))

	var input struct {
		Content string `json:"content" validate:"required,min=1"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var comment models.Comment
	if err := cc.DB.First(&comment, commentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Comment not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch comment", err)
	}

	if comment.AuthorID != user.ID {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the author can edit a comment", nil)
	}

	comment.Content = input.Content
	comment.Edited = true

	if err := cc.DB.Save(&comment).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update comment", err)
	}

	return c.JSON(utils.SuccessResponse(commentResponse{
		Comment: comment,
		Author:  utils.Pointer(user.Summary()),
	}))
}
