package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/auth"
)

func TestHashPassword(t *testing.T) {
	t.Run("rejects empty password", func(t *testing.T) {
		_, err := auth.HashPassword("")
		assert.ErrorIs(t, err, auth.ErrNoEmptyString)
	})

	t.Run("hash verifies against the original", func(t *testing.T) {
		hash, err := auth.HashPassword("password123")
		require.NoError(t, err)
		require.NotEqual(t, "password123", hash)

		assert.NoError(t, auth.ComparePasswordAndHash("password123", hash))
		assert.ErrorIs(t,
			auth.ComparePasswordAndHash("wrong-password", hash),
			auth.ErrMismatchedHashAndPassword,
		)
	})
}

func TestRandomPasswordHash(t *testing.T) {
	hash := auth.RandomPasswordHash()
	assert.NotEmpty(t, hash)
}
