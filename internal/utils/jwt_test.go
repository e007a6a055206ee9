package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	tok, err := SignJWT("s3cret", "c0ffee", "admin", 5)
	require.NoError(t, err)

	claims, err := ParseJWT("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, "c0ffee", claims.ClientID)
	assert.Equal(t, "admin", claims.Role)

	_, err = ParseJWT("other", tok)
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	tok, err := SignJWT("s3cret", "c0ffee", "client", -1)
	require.NoError(t, err)

	_, err = ParseJWT("s3cret", tok)
	assert.Error(t, err)
}
