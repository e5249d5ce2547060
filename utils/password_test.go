package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong-pass"))
	assert.False(t, CheckPassword(hash, ""))
}

func TestHashPasswordSalted(t *testing.T) {
	first, err := HashPassword("same-input")
	require.NoError(t, err)
	second, err := HashPassword("same-input")
	require.NoError(t, err)

	// bcrypt salts per call
	assert.NotEqual(t, first, second)
}

func TestRandomPassword(t *testing.T) {
	first, err := RandomPassword()
	require.NoError(t, err)
	second, err := RandomPassword()
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.NotEqual(t, first, second)
}
