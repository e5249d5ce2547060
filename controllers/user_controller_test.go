package controller_test

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracknexy/models"
)

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.signup("alice@example.com", "Alice")

	resp := env.request(fiber.MethodPut, "/api/users/me", token, fiber.Map{
		"name": "Alice Cooper", "avatar_url": "https://cdn.example.com/alice.png",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var user models.User
	require.NoError(t, env.db.First(&user, userID).Error)
	assert.Equal(t, "Alice Cooper", user.Name)
	require.NotNil(t, user.AvatarURL)
	assert.Equal(t, "https://cdn.example.com/alice.png", *user.AvatarURL)

	// Single-character names are rejected
	resp = env.request(fiber.MethodPut, "/api/users/me", token, fiber.Map{
		"name": "A",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestUpdatePreferencesMergesAndDeletes(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.signup("alice@example.com", "Alice")

	resp := env.request(fiber.MethodPut, "/api/users/me/preferences", token, fiber.Map{
		"theme": "dark", "density": "compact",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Existing keys survive a partial update; nil deletes
	resp = env.request(fiber.MethodPut, "/api/users/me/preferences", token, fiber.Map{
		"density": nil, "language": "de",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out struct {
		Data map[string]interface{} `json:"data"`
	}
	decodeJSON(t, resp, &out)
	assert.Equal(t, "dark", out.Data["theme"])
	assert.Equal(t, "de", out.Data["language"])
	assert.NotContains(t, out.Data, "density")

	var user models.User
	require.NoError(t, env.db.First(&user, userID).Error)
	assert.Equal(t, "dark", user.Preferences["theme"])
}
