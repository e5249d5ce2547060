package controller_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tracknexy/config"
	"tracknexy/models"
	"tracknexy/routes"
	"tracknexy/utils"
)

type testEnv struct {
	t   *testing.T
	app *fiber.App
	db  *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// In-memory sqlite databases are per-connection
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.Migrate(db))

	cfg := &config.Config{
		JWTSecret:     "test-secret",
		RateLimitAuth: 1000,
		BaseURL:       "http://localhost:3000",
	}
	tm := utils.NewTokenManager(cfg.JWTSecret)
	mailer := utils.NewMailer("", "587", "", "", "noreply@example.com", cfg.BaseURL)

	app := fiber.New()
	routes.SetupRoutes(app, db, cfg, tm, mailer)

	return &testEnv{t: t, app: app, db: db}
}

func (e *testEnv) request(method, path, token string, body interface{}) *http.Response {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

// signup registers and logs a user in, returning the access token and id.
func (e *testEnv) signup(email, name string) (string, uint) {
	e.t.Helper()

	resp := e.request(fiber.MethodPost, "/auth/register", "", fiber.Map{
		"name": name, "email": email, "password": "password123",
	})
	require.Equal(e.t, fiber.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = e.request(fiber.MethodPost, "/auth/login", "", fiber.Map{
		"email": email, "password": "password123",
	})
	require.Equal(e.t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID uint
		} `json:"user"`
	}
	decodeJSON(e.t, resp, &out)
	require.NotEmpty(e.t, out.AccessToken)
	require.NotZero(e.t, out.User.ID)
	return out.AccessToken, out.User.ID
}

func (e *testEnv) createOrg(token, name, slug string) uint {
	e.t.Helper()

	resp := e.request(fiber.MethodPost, "/api/organizations", token, fiber.Map{
		"name": name, "slug": slug,
	})
	require.Equal(e.t, fiber.StatusCreated, resp.StatusCode)

	var out struct {
		Data struct {
			ID uint
		} `json:"data"`
	}
	decodeJSON(e.t, resp, &out)
	require.NotZero(e.t, out.Data.ID)
	return out.Data.ID
}

func (e *testEnv) createProject(token string, orgID uint, name, key, boardType string) uint {
	e.t.Helper()

	body := fiber.Map{"name": name, "key": key, "organization_id": orgID}
	if boardType != "" {
		body["board_type"] = boardType
	}

	resp := e.request(fiber.MethodPost, "/api/projects", token, body)
	require.Equal(e.t, fiber.StatusCreated, resp.StatusCode)

	var out struct {
		Data struct {
			ID uint
		} `json:"data"`
	}
	decodeJSON(e.t, resp, &out)
	require.NotZero(e.t, out.Data.ID)
	return out.Data.ID
}

type issuePayload struct {
	ID         uint
	Key        string  `json:"key"`
	Title      string  `json:"title"`
	Type       string  `json:"type"`
	Status     string  `json:"status"`
	Priority   string  `json:"priority"`
	ProjectID  uint    `json:"project_id"`
	ReporterID uint    `json:"reporter_id"`
	AssigneeID *uint   `json:"assignee_id"`
	Watchers   []uint  `json:"watchers"`
	ResolvedAt *string `json:"resolved_at"`
}

func (e *testEnv) createIssue(token string, projectID uint, title, issueType string) issuePayload {
	e.t.Helper()

	resp := e.request(fiber.MethodPost, "/api/issues", token, fiber.Map{
		"title": title, "type": issueType, "project_id": projectID,
	})
	require.Equal(e.t, fiber.StatusCreated, resp.StatusCode)

	var out issuePayload
	decodeJSON(e.t, resp, &out)
	require.NotZero(e.t, out.ID)
	return out
}
