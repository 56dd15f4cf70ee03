package jwtutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestConfig() {
	Initialize(&Config{
		SigningKey:      "test-signing-key",
		ExpirationHours: 1,
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	setupTestConfig()

	token, err := GenerateToken("user@example.com", 42, false)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, uint(42), claims.UserID)
	assert.False(t, claims.IsAdmin)
	assert.Nil(t, claims.TenantID)
	assert.Empty(t, claims.TenantName)
}

func TestGenerateTokenWithTenant(t *testing.T) {
	setupTestConfig()

	tenantID := uint(7)
	token, err := GenerateTokenWithTenant("admin@example.com", 1, true, &tenantID, "Acme Corp")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, uint(7), *claims.TenantID)
	assert.Equal(t, "Acme Corp", claims.TenantName)
}

func TestValidateToken_WrongKey(t *testing.T) {
	setupTestConfig()
	token, err := GenerateToken("user@example.com", 42, false)
	require.NoError(t, err)

	Initialize(&Config{SigningKey: "a-different-key", ExpirationHours: 1})
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	Initialize(&Config{SigningKey: "test-signing-key", ExpirationHours: -1})
	defer setupTestConfig()

	token, err := GenerateToken("user@example.com", 42, false)
	require.NoError(t, err)

	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	setupTestConfig()
	_, err := ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestGenerateToken_NotInitialized(t *testing.T) {
	Initialize(nil)
	defer setupTestConfig()

	_, err := GenerateToken("user@example.com", 1, false)
	assert.Error(t, err)
}
