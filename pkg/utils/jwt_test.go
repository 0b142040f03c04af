package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateTokenPair(t *testing.T) {
	svc := NewJWTService("test-secret")

	access, refresh, expiresIn, err := svc.GenerateTokenPair("user-1", "user@cidery.test")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.Greater(t, expiresIn, int64(0))

	claims, err := svc.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user@cidery.test", claims.Email)
	assert.Equal(t, "access", claims.Type)
}

func TestValidateTokenRejectsRefreshToken(t *testing.T) {
	svc := NewJWTService("test-secret")

	_, refresh, _, err := svc.GenerateTokenPair("user-1", "user@cidery.test")
	require.NoError(t, err)

	// access校验不接受refresh token
	_, err = svc.ValidateToken(refresh)
	assert.Error(t, err)
}

func TestRefreshAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret")

	_, refresh, _, err := svc.GenerateTokenPair("user-1", "user@cidery.test")
	require.NoError(t, err)

	access, expiresIn, err := svc.RefreshAccessToken(refresh)
	require.NoError(t, err)
	assert.Greater(t, expiresIn, int64(0))

	claims, err := svc.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := NewJWTService("test-secret")
	other := NewJWTService("other-secret")

	access, _, _, err := svc.GenerateTokenPair("user-1", "user@cidery.test")
	require.NoError(t, err)

	_, err = other.ValidateToken(access)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewJWTService("test-secret")

	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}
