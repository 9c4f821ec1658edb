package utils_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/steavenspr/auth-api-prototype/internal/utils"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := utils.HashPassword("Str0ngPass!23", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))
	assert.NotContains(t, hash, "Str0ngPass!23")

	assert.True(t, utils.VerifyPassword(hash, "Str0ngPass!23"))
	assert.False(t, utils.VerifyPassword(hash, "Str0ngPass!24"))
	assert.False(t, utils.VerifyPassword(hash, ""))
	assert.False(t, utils.VerifyPassword("not-a-hash", "Str0ngPass!23"))
}

func TestHashPassword_SaltDiffers(t *testing.T) {
	t.Parallel()

	h1, err := utils.HashPassword("same-password", bcrypt.MinCost)
	require.NoError(t, err)
	h2, err := utils.HashPassword("same-password", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.True(t, utils.VerifyPassword(h1, "same-password"))
	assert.True(t, utils.VerifyPassword(h2, "same-password"))
}

func TestNewBcryptHasher_Cost(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.DefaultCost, utils.NewBcryptHasher(0).Cost)
	assert.Equal(t, bcrypt.DefaultCost, utils.NewBcryptHasher(bcrypt.MaxCost+1).Cost)
	assert.Equal(t, bcrypt.MinCost, utils.NewBcryptHasher(bcrypt.MinCost).Cost)

	h := utils.NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("Str0ngPass!23")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
	assert.True(t, h.Verify(hash, "Str0ngPass!23"))
}
