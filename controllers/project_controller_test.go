package controller_test

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracknexy/models"
	"tracknexy/utils"
)

func TestCreateProject(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.signup("alice@example.com", "Alice")
	orgID := env.createOrg(token, "Acme", "acme")

	resp := env.request(fiber.MethodPost, "/api/projects", token, fiber.Map{
		"name": "Demo", "key": "demo", "organization_id": orgID,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var out struct {
		Data struct {
			ID       uint
			Key      string `json:"key"`
			LeadID   uint   `json:"lead_id"`
			Settings struct {
				BoardType  string   `json:"board_type"`
				IssueTypes []string `json:"issue_types"`
			} `json:"settings"`
			Lead *struct {
				ID    uint   `json:"id"`
				Email string `json:"email"`
			} `json:"lead"`
			Organization *struct {
				Slug string `json:"slug"`
			} `json:"organization"`
		} `json:"data"`
	}
	decodeJSON(t, resp, &out)

	// Keys are upcased on the way in
	assert.Equal(t, "DEMO", out.Data.Key)
	assert.Equal(t, userID, out.Data.LeadID)
	assert.Equal(t, models.BoardTypeKanban, out.Data.Settings.BoardType)
	assert.NotEmpty(t, out.Data.Settings.IssueTypes)
	require.NotNil(t, out.Data.Lead)
	assert.Equal(t, "alice@example.com", out.Data.Lead.Email)
	require.NotNil(t, out.Data.Organization)
	assert.Equal(t, "acme", out.Data.Organization.Slug)

	// Creator becomes project_admin
	role, err := models.ProjectMemberRole(env.db, out.Data.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleProjectAdmin, role)

	// A default board with the standard columns comes with the project
	var board models.Board
	require.NoError(t, env.db.Where("project_id = ?", out.Data.ID).First(&board).Error)
	require.Len(t, board.Columns, 4)
	assert.Equal(t, models.StatusTodo, board.Columns[0].Status)
	assert.Equal(t, models.StatusDone, board.Columns[3].Status)
}

func TestCreateProjectKeyScopedToOrg(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup("alice@example.com", "Alice")
	firstOrg := env.createOrg(token, "Acme", "acme")
	secondOrg := env.createOrg(token, "Globex", "globex")

	env.createProject(token, firstOrg, "Demo", "DEMO", "")

	// Same key in the same org is rejected
	resp := env.request(fiber.MethodPost, "/api/projects", token, fiber.Map{
		"name": "Demo Again", "key": "DEMO", "organization_id": firstOrg,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Same key in a different org is fine
	resp = env.request(fiber.MethodPost, "/api/projects", token, fiber.Map{
		"name": "Demo Elsewhere", "key": "DEMO", "organization_id": secondOrg,
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateProjectValidatesKey(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup("alice@example.com", "Alice")
	orgID := env.createOrg(token, "Acme", "acme")

	for _, bad := range []string{"A", "TOOLONGKEY", "no spaces", "ab-c"} {
		resp := env.request(fiber.MethodPost, "/api/projects", token, fiber.Map{
			"name": "Demo", "key": bad, "organization_id": orgID,
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "key %q should be rejected", bad)
		resp.Body.Close()
	}
}

func TestCreateProjectRequiresOrgMembership(t *testing.T) {
	env := newTestEnv(t)
	tokenA, _ := env.signup("alice@example.com", "Alice")
	tokenB, _ := env.signup("bob@example.com", "Bob")
	orgID := env.createOrg(tokenA, "Acme", "acme")

	resp := env.request(fiber.MethodPost, "/api/projects", tokenB, fiber.Map{
		"name": "Sneaky", "key": "SNK", "organization_id": orgID,
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(fiber.MethodPost, "/api/projects", tokenA, fiber.Map{
		"name": "Ghost", "key": "GHO", "organization_id": 9999,
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestUpdateProjectRequiresProjectAdmin(t *testing.T) {
	env := newTestEnv(t)
	tokenA, _ := env.signup("alice@example.com", "Alice")
	tokenB, bobID := env.signup("bob@example.com", "Bob")
	orgID := env.createOrg(tokenA, "Acme", "acme")
	projectID := env.createProject(tokenA, orgID, "Demo", "DEMO", "")

	addMember := env.request(fiber.MethodPost, "/api/projects/1/members", tokenA, fiber.Map{
		"user_id": bobID, "role": models.RoleDeveloper,
	})
	require.Equal(t, fiber.StatusCreated, addMember.StatusCode)
	addMember.Body.Close()

	// A developer cannot rename the project
	resp := env.request(fiber.MethodPut, "/api/projects/1", tokenB, fiber.Map{
		"name": "Bob's Project",
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(fiber.MethodPut, "/api/projects/1", tokenA, fiber.Map{
		"name": "Renamed",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var project models.Project
	require.NoError(t, env.db.First(&project, projectID).Error)
	assert.Equal(t, "Renamed", project.Name)
}

func TestUpdateProjectLeadMustBeMember(t *testing.T) {
	env := newTestEnv(t)
	tokenA, _ := env.signup("alice@example.com", "Alice")
	_, bobID := env.signup("bob@example.com", "Bob")
	orgID := env.createOrg(tokenA, "Acme", "acme")
	env.createProject(tokenA, orgID, "Demo", "DEMO", "")

	resp := env.request(fiber.MethodPut, "/api/projects/1", tokenA, fiber.Map{
		"lead_id": bobID,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	addMember := env.request(fiber.MethodPost, "/api/projects/1/members", tokenA, fiber.Map{
		"user_id": bobID, "role": models.RoleTeamLead,
	})
	require.Equal(t, fiber.StatusCreated, addMember.StatusCode)
	addMember.Body.Close()

	resp = env.request(fiber.MethodPut, "/api/projects/1", tokenA, fiber.Map{
		"lead_id": bobID,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestRemoveMemberKeepsLead(t *testing.T) {
	env := newTestEnv(t)
	tokenA, aliceID := env.signup("alice@example.com", "Alice")
	_, bobID := env.signup("bob@example.com", "Bob")
	orgID := env.createOrg(tokenA, "Acme", "acme")
	projectID := env.createProject(tokenA, orgID, "Demo", "DEMO", "")

	addMember := env.request(fiber.MethodPost, "/api/projects/1/members", tokenA, fiber.Map{
		"user_id": bobID, "role": models.RoleDeveloper,
	})
	require.Equal(t, fiber.StatusCreated, addMember.StatusCode)
	addMember.Body.Close()

	// The lead cannot be removed
	resp := env.request(fiber.MethodDelete, "/api/projects/1/members/"+utils.FormatUint(aliceID), tokenA, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = env.request(fiber.MethodDelete, "/api/projects/1/members/"+utils.FormatUint(bobID), tokenA, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	isMember, err := models.IsProjectMember(env.db, projectID, bobID)
	require.NoError(t, err)
	assert.False(t, isMember)
}

func TestGetProjectsListsOnlyMemberships(t *testing.T) {
	env := newTestEnv(t)
	tokenA, _ := env.signup("alice@example.com", "Alice")
	tokenB, _ := env.signup("bob@example.com", "Bob")
	orgID := env.createOrg(tokenA, "Acme", "acme")
	env.createProject(tokenA, orgID, "Demo", "DEMO", "")

	resp := env.request(fiber.MethodGet, "/api/projects", tokenB, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		Data []struct {
			Key string `json:"key"`
		} `json:"data"`
	}
	decodeJSON(t, resp, &out)
	assert.Empty(t, out.Data)

	resp = env.request(fiber.MethodGet, "/api/projects", tokenA, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &out)
	require.Len(t, out.Data, 1)
	assert.Equal(t, "DEMO", out.Data[0].Key)
}
