package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dam/config"
)

func TestJWTRoundTrip(t *testing.T) {
	config.LoadConfig()

	token, err := GenerateJWT("64f1c0ffee0000000000aaaa", "alice", "editor")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "64f1c0ffee0000000000aaaa", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "editor", claims.Role)
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	config.LoadConfig()

	_, err := ValidateJWT("not.a.token")
	assert.Error(t, err)
}

func TestValidateJWTRejectsWrongKey(t *testing.T) {
	config.LoadConfig()

	token, err := GenerateJWT("id", "bob", "viewer")
	require.NoError(t, err)

	orig := config.JWTKey
	config.JWTKey = []byte("some-other-secret")
	defer func() { config.JWTKey = orig }()

	_, err = ValidateJWT(token)
	assert.Error(t, err)
}
