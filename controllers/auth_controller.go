package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"tracknexy/config"
	"tracknexy/models"
	"tracknexy/utils"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	SessionID    string       `json:"session_id,omitempty"`
	User         *models.User `json:"user"`
}

type AuthController struct {
	DB     *gorm.DB
	Tokens *utils.TokenManager
	Logger *log.Logger

	googleOAuth *oauth2.Config
}

func NewAuthController(db *gorm.DB, tm *utils.TokenManager, cfg *config.Config, logger *log.Logger) *AuthController {
	return &AuthController{
		DB:     db,
		Tokens: tm,
		Logger: logger,
		googleOAuth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURI,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

func (ac *AuthController) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}
	if err := checkmail.ValidateFormat(req.Email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "email must be a valid email", nil)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Check if user already exists
	var existingUser models.User
	if err := ac.DB.Where("email = ?", email).First(&existingUser).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "User with this email already exists", nil)
	}

	// Hash password
	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create user", err)
	}

	user := models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         strings.TrimSpace(req.Name),
		Role:         models.RoleDeveloper,
	}

	if err := ac.DB.Create(&user).Error; err != nil {
		// A concurrent register can slip past the lookup above and land on
		// the unique index; report it as the same conflict.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "User with this email already exists", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create user", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"user":    &user,
	})
}

func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Same message for unknown email and wrong password; the caller learns
	// nothing about which one failed.
	var user models.User
	if err := ac.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid email or password", nil)
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid email or password", nil)
	}

	accessToken, refreshToken, sessionID, err := ac.Tokens.Generate(&user)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate tokens", err)
	}

	ac.setSessionCookies(c, accessToken, refreshToken)

	return c.JSON(AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    sessionID,
		User:         &user,
	})
}

func (ac *AuthController) Logout(c *fiber.Ctx) error {
	c.ClearCookie("access_token")
	c.ClearCookie("refresh_token")
	return c.SendStatus(fiber.StatusOK)
}

func (ac *AuthController) GetCurrentUser(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	return c.JSON(user)
}

func (ac *AuthController) RefreshToken(c *fiber.Ctx) error {
	var req RefreshTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	claims, err := ac.Tokens.Parse(req.RefreshToken)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid or expired token", nil)
	}

	var user models.User
	if err := ac.DB.First(&user, claims.UserID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "User not found", nil)
	}

	accessToken, refreshToken, err := ac.Tokens.Refresh(req.RefreshToken, &user)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid or expired token", nil)
	}

	ac.setSessionCookies(c, accessToken, refreshToken)

	return c.JSON(fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

func (ac *AuthController) GoogleOAuth(c *fiber.Ctx) error {
	// OAuth state token with CSRF protection
	state, err := utils.RandomPassword()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate state token", err)
	}

	cookie := new(fiber.Cookie)
	cookie.Name = "oauth_state"
	cookie.Value = state
	cookie.Expires = time.Now().Add(10 * time.Minute)
	cookie.HTTPOnly = true
	cookie.Secure = true
	cookie.SameSite = "Lax"
	c.Cookie(cookie)

	url := ac.googleOAuth.AuthCodeURL(state, oauth2.AccessTypeOffline)
	return c.Redirect(url, fiber.StatusTemporaryRedirect)
}

func (ac *AuthController) GoogleOAuthCallback(c *fiber.Ctx) error {
	// Verify state token from cookie
	state := c.Query("state")
	cookieState := c.Cookies("oauth_state")

	if state == "" || cookieState == "" || state != cookieState {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid state parameter", nil)
	}

	c.ClearCookie("oauth_state")

	code := c.Query("code")
	if code == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Authorization code not provided", nil)
	}

	token, err := ac.googleOAuth.Exchange(context.Background(), code)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to exchange token", err)
	}

	client := ac.googleOAuth.Client(context.Background(), token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get user info", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Google API error", errors.New(string(body)))
	}

	var googleUser struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&googleUser); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to parse user info", err)
	}

	if googleUser.Email == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Google account email is required", nil)
	}

	email := strings.ToLower(googleUser.Email)

	// Find or create user. First social sign-in gets a local account with a
	// random secret that the password path can never match.
	var user models.User
	err = ac.DB.Where("email = ?", email).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to look up user", err)
		}

		randomSecret, err := utils.RandomPassword()
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create user", err)
		}
		hashed, err := utils.HashPassword(randomSecret)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create user", err)
		}

		user = models.User{
			Email:          email,
			Name:           googleUser.Name,
			PasswordHash:   hashed,
			Role:           models.RoleDeveloper,
			GoogleID:       &googleUser.ID,
			GoogleImageURL: &googleUser.Picture,
		}
		if err := ac.DB.Create(&user).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create user", err)
		}
	} else {
		// Update Google info if needed
		updateNeeded := false
		if user.GoogleID == nil || *user.GoogleID != googleUser.ID {
			user.GoogleID = &googleUser.ID
			updateNeeded = true
		}
		if user.GoogleImageURL == nil || *user.GoogleImageURL != googleUser.Picture {
			user.GoogleImageURL = &googleUser.Picture
			updateNeeded = true
		}
		if updateNeeded {
			if err := ac.DB.Save(&user).Error; err != nil {
				return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update user", err)
			}
		}
	}

	accessToken, refreshToken, sessionID, err := ac.Tokens.Generate(&user)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate tokens", err)
	}

	ac.setSessionCookies(c, accessToken, refreshToken)

	return c.JSON(AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    sessionID,
		User:         &user,
	})
}

func (ac *AuthController) setSessionCookies(c *fiber.Ctx, accessToken, refreshToken string) {
	accessCookie := new(fiber.Cookie)
	accessCookie.Name = "access_token"
	accessCookie.Value = accessToken
	accessCookie.Expires = time.Now().Add(15 * time.Minute)
	accessCookie.HTTPOnly = true
	accessCookie.Secure = true
	accessCookie.SameSite = "Lax"
	c.Cookie(accessCookie)

	refreshCookie := new(fiber.Cookie)
	refreshCookie.Name = "refresh_token"
	refreshCookie.Value = refreshToken
	refreshCookie.Expires = time.Now().Add(7 * 24 * time.Hour)
	refreshCookie.HTTPOnly = true
	refreshCookie.Secure = true
	refreshCookie.SameSite = "Lax"
	c.Cookie(refreshCookie)
}
