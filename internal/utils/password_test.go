package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, VerifyPassword(hash, "s3cret-pass"))
	assert.False(t, VerifyPassword(hash, "wrong-pass"))
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "s3cret-pass"))
}

func TestHashPasswordSalted(t *testing.T) {
	// Two hashes of the same input must differ: bcrypt salts internally.
	h1, err := HashPassword("same-input", bcrypt.MinCost)
	require.NoError(t, err)
	h2, err := HashPassword("same-input", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
