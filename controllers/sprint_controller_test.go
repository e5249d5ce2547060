package controller_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracknexy/models"
)

func (e *testEnv) createSprint(token string, projectID uint, name string) uint {
	e.t.Helper()

	start := time.Now().Truncate(time.Second)
	resp := e.request(fiber.MethodPost, fmt.Sprintf("/api/projects/%d/sprints", projectID), token, fiber.Map{
		"name":       name,
		"start_date": start.Format(time.RFC3339),
		"end_date":   start.Add(14 * 24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(e.t, fiber.StatusCreated, resp.StatusCode)

	var out struct {
		Data struct {
			ID     uint
			Status string `json:"status"`
		} `json:"data"`
	}
	decodeJSON(e.t, resp, &out)
	require.Equal(e.t, models.SprintPlanned, out.Data.Status)
	return out.Data.ID
}

func TestCreateSprintRequiresScrum(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup("alice@example.com", "Alice")
	orgID := env.createOrg(token, "Acme", "acme")
	kanbanID := env.createProject(token, orgID, "Board Only", "KAN", models.BoardTypeKanban)

	start := time.Now()
	resp := env.request(fiber.MethodPost, fmt.Sprintf("/api/projects/%d/sprints", kanbanID), token, fiber.Map{
		"name":       "Sprint 1",
		"start_date": start.Format(time.RFC3339),
		"end_date":   start.Add(14 * 24 * time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateSprintRejectsInvertedDates(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup("alice@example.com", "Alice")
	orgID := env.createOrg(token, "Acme", "acme")
	projectID := env.createProject(token, orgID, "Scrum", "SCR", models.BoardTypeScrum)

	start := time.Now()
	resp := env.request(fiber.MethodPost, fmt.Sprintf("/api/projects/%d/sprints", projectID), token, fiber.Map{
		"name":       "Backwards",
		"start_date": start.Format(time.RFC3339),
		"end_date":   start.Add(-time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestSprintLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup("alice@example.com", "Alice")
	orgID := env.createOrg(token, "Acme", "acme")
	projectID := env.createProject(token, orgID, "Scrum", "SCR", models.BoardTypeScrum)
	sprintID := env.createSprint(token, projectID, "Sprint 1")

	// Completing a planned sprint is rejected
	resp := env.request(fiber.MethodPost, fmt.Sprintf("/api/sprints/%d/complete", sprintID), token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(fiber.MethodPost, fmt.Sprintf("/api/sprints/%d/start", sprintID), token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Starting twice is rejected
	resp = env.request(fiber.MethodPost, fmt.Sprintf("/api/sprints/%d/start", sprintID), token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// A second sprint cannot start while the first is active
	secondID := env.createSprint(token, projectID, "Sprint 2")
	resp = env.request(fiber.MethodPost, fmt.Sprintf("/api/sprints/%d/start", secondID), token, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCompleteSprintComputesVelocity(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup("alice@example.com", "Alice")
	orgID := env.createOrg(token, "Acme", "acme")
	projectID := env.createProject(token, orgID, "Scrum", "SCR", models.BoardTypeScrum)
	sprintID := env.createSprint(token, projectID, "Sprint 1")

	resp := env.request(fiber.MethodPost, fmt.Sprintf("/api/sprints/%d/start", sprintID), token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	finished := env.createIssue(token, projectID, "Shipped story", models.IssueTypeStory)
	unfinished := env.createIssue(token, projectID, "Leftover story", models.IssueTypeStory)

	resp = env.request(fiber.MethodPost, fmt.Sprintf("/api/sprints/%d/issues", sprintID), token, fiber.Map{
		"issue_ids": []uint{finished.ID, unfinished.ID},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(fiber.MethodPut, fmt.Sprintf("/api/issues/%d", finished.ID), token, fiber.Map{
		"story_points": 5, "status": models.StatusDone,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(fiber.MethodPut, fmt.Sprintf("/api/issues/%d", unfinished.ID), token, fiber.Map{
		"story_points": 8,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(fiber.MethodPost, fmt.Sprintf("/api/sprints/%d/complete", sprintID), token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		Data struct {
			Status   string `json:"status"`
			Velocity *int   `json:"velocity"`
		} `json:"data"`
	}
	decodeJSON(t, resp, &out)
	assert.Equal(t, models.SprintCompleted, out.Data.Status)
	require.NotNil(t, out.Data.Velocity)
	assert.Equal(t, 5, *out.Data.Velocity)

	// Unfinished work returns to the backlog; done work keeps the sprint
	var leftover, shipped models.Issue
	require.NoError(t, env.db.First(&leftover, unfinished.ID).Error)
	assert.Nil(t, leftover.SprintID)
	require.NoError(t, env.db.First(&shipped, finished.ID).Error)
	require.NotNil(t, shipped.SprintID)
	assert.Equal(t, sprintID, *shipped.SprintID)

	// No assignments after completion
	resp = env.request(fiber.MethodPost, fmt.Sprintf("/api/sprints/%d/issues", sprintID), token, fiber.Map{
		"issue_ids": []uint{unfinished.ID},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAddIssuesChecksProject(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup("alice@example.com", "Alice")
	orgID := env.createOrg(token, "Acme", "acme")
	scrumID := env.createProject(token, orgID, "Scrum", "SCR", models.BoardTypeScrum)
	otherID := env.createProject(token, orgID, "Other", "OTH", "")
	sprintID := env.createSprint(token, scrumID, "Sprint 1")

	foreign := env.createIssue(token, otherID, "Foreign issue", models.IssueTypeTask)

	resp := env.request(fiber.MethodPost, fmt.Sprintf("/api/sprints/%d/issues", sprintID), token, fiber.Map{
		"issue_ids": []uint{foreign.ID},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestSprintGatesOnRole(t *testing.T) {
	env := newTestEnv(t)
	tokenA, _ := env.signup("alice@example.com", "Alice")
	tokenB, bobID := env.signup("bob@example.com", "Bob")
	orgID := env.createOrg(tokenA, "Acme", "acme")
	projectID := env.createProject(tokenA, orgID, "Scrum", "SCR", models.BoardTypeScrum)

	addMember := env.request(fiber.MethodPost, fmt.Sprintf("/api/projects/%d/members", projectID), tokenA, fiber.Map{
		"user_id": bobID, "role": models.RoleDeveloper,
	})
	require.Equal(t, fiber.StatusCreated, addMember.StatusCode)
	addMember.Body.Close()

	// Developers cannot create sprints, team leads and above can
	start := time.Now()
	resp := env.request(fiber.MethodPost, fmt.Sprintf("/api/projects/%d/sprints", projectID), tokenB, fiber.Map{
		"name":       "Bob's sprint",
		"start_date": start.Format(time.RFC3339),
		"end_date":   start.Add(14 * 24 * time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	env.createSprint(tokenA, projectID, "Alice's sprint")
}
