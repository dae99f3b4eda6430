package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	SetJWTSecret("test-secret")

	token, err := GenerateToken(42)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.HunterID)
	assert.Equal(t, "trasHunter", claims.Issuer)
}

func TestParseToken_WrongSecret(t *testing.T) {
	SetJWTSecret("first")
	token, err := GenerateToken(1)
	require.NoError(t, err)

	SetJWTSecret("second")
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_Garbage(t *testing.T) {
	SetJWTSecret("test-secret")
	_, err := ParseToken("not-a-token")
	assert.Error(t, err)
}
