package services_test

import (
	"strings"
	"testing"

	"bugboard/internal/apperrors"
	"bugboard/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestCredentialStore_HashAndCheck(t *testing.T) {
	creds := services.NewCredentialStore(10)

	digest, err := creds.HashPassword("correct-horse")
	assert.NoError(t, err)
	assert.NotEqual(t, "correct-horse", digest)
	assert.True(t, creds.CheckPassword("correct-horse", digest))
	assert.False(t, creds.CheckPassword("wrong-horse", digest))

	assert.True(t, apperrors.IsKind(creds.ValidatePassword("tiny"), apperrors.KindValidation))
	assert.NoError(t, creds.ValidatePassword("longer"))
}

func TestCredentialStore_GenerateTemporaryPassword(t *testing.T) {
	creds := services.NewCredentialStore(10)
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*"

	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		password, err := creds.GenerateTemporaryPassword()
		assert.NoError(t, err)
		assert.Len(t, password, 12)
		for _, ch := range password {
			assert.True(t, strings.ContainsRune(charset, ch), "unexpected character %q", ch)
		}
		seen[password] = true
	}
	// Collisions over 32 draws from a 70^12 space mean broken randomness.
	assert.Len(t, seen, 32)
}
