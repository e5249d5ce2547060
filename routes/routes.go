package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	"tracknexy/config"
	controller "tracknexy/controllers"
	"tracknexy/middleware"
	"tracknexy/utils"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, tm *utils.TokenManager) {
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)
	authController := controller.NewAuthController(db, tm, cfg, authLogger)

	// Auth routes group with logging and rate limiting
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}), middleware.AuthRateLimiter(cfg))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)
	auth.Post("/refresh", authController.RefreshToken)

	// Google OAuth routes
	auth.Get("/google", authController.GoogleOAuth)
	auth.Get("/google/callback", authController.GoogleOAuthCallback)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected(db, tm))
	protectedAuth.Post("/logout", authController.Logout)
	protectedAuth.Get("/me", authController.GetCurrentUser)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, tm *utils.TokenManager, mailer *utils.Mailer) {
	userController := controller.NewUserController(db, log.New(os.Stdout, "USER: ", log.LstdFlags))
	orgController := controller.NewOrganizationController(db, log.New(os.Stdout, "ORG: ", log.LstdFlags))
	projectController := controller.NewProjectController(db, log.New(os.Stdout, "PROJECT: ", log.LstdFlags))
	issueController := controller.NewIssueController(db, log.New(os.Stdout, "ISSUE: ", log.LstdFlags))
	commentController := controller.NewCommentController(db, mailer, log.New(os.Stdout, "COMMENT: ", log.LstdFlags))
	sprintController := controller.NewSprintController(db, log.New(os.Stdout, "SPRINT: ", log.LstdFlags))
	boardController := controller.NewBoardController(db, log.New(os.Stdout, "BOARD: ", log.LstdFlags))

	// API group with protection and logging
	api := app.Group("/api", middleware.Protected(db, tm), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Profile routes
	users := api.Group("/users")
	users.Put("/me", userController.UpdateProfile)
	users.Put("/me/preferences", userController.UpdatePreferences)

	// Organization routes
	org := api.Group("/organizations")
	org.Post("/", orgController.CreateOrganization)
	org.Get("/", orgController.GetOrganizations)
	org.Get("/:id", orgController.GetOrganization)
	org.Post("/:id/members", orgController.AddMember)

	// Project routes
	project := api.Group("/projects")
	project.Post("/", projectController.CreateProject)
	project.Get("/", projectController.GetProjects)
	project.Get("/:id", projectController.GetProject)
	project.Put("/:id", projectController.UpdateProject)
	project.Post("/:id/members", projectController.AddMember)
	project.Delete("/:id/members/:userId", projectController.RemoveMember)
	project.Get("/:id/board", boardController.GetBoard)
	project.Post("/:id/sprints", sprintController.CreateSprint)
	project.Get("/:id/sprints", sprintController.GetSprints)

	// Issue routes
	issue := api.Group("/issues")
	issue.Post("/", issueController.CreateIssue)
	issue.Get("/", issueController.GetIssues)
	issue.Get("/:id", issueController.GetIssue)
	issue.Put("/:id", issueController.UpdateIssue)
	issue.Post("/:id/watchers", issueController.AddWatcher)
	issue.Delete("/:id/watchers", issueController.RemoveWatcher)
	issue.Get("/:id/comments", commentController.GetComments)
	issue.Post("/:id/comments", commentController.CreateComment)

	// Comment routes
	api.Put("/comments/:id", commentController.UpdateComment)

	// Sprint routes
	sprint := api.Group("/sprints")
	sprint.Post("/:id/start", sprintController.StartSprint)
	sprint.Post("/:id/complete", sprintController.CompleteSprint)
	sprint.Post("/:id/issues", sprintController.AddIssues)

	// Board routes
	board := api.Group("/boards")
	board.Put("/:id/columns", boardController.UpdateColumns)
	board.Post("/:id/move", boardController.MoveIssue)

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, tm *utils.TokenManager, mailer *utils.Mailer) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup auth routes
	SetupAuthRoutes(app, db, cfg, tm)

	// Setup API routes
	SetupAPIRoutes(app, db, cfg, tm, mailer)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
