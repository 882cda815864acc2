package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_TokenPairRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", "self-discovery")

	access, refresh, err := svc.GenerateTokenPair("user-1", "mentee@example.com", "Mentee One", "mentee", "session-1")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	claims, err := svc.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "mentee@example.com", claims.Email)
	assert.Equal(t, "Mentee One", claims.DisplayName)
	assert.Equal(t, "mentee", claims.Role)
	assert.Equal(t, "session-1", claims.SessionID)

	refreshClaims, err := svc.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "session-1", refreshClaims.SessionID)
}

func TestJWTService_RejectsWrongTokenType(t *testing.T) {
	svc := NewJWTService("test-secret", "self-discovery")

	access, refresh, err := svc.GenerateTokenPair("user-1", "a@b.c", "A", "mentee", "s1")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsForeignSignature(t *testing.T) {
	svc := NewJWTService("test-secret", "self-discovery")
	other := NewJWTService("another-secret", "self-discovery")

	access, _, err := other.GenerateTokenPair("user-1", "a@b.c", "A", "mentee", "s1")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(access)
	assert.Error(t, err)
}

func TestExtractTokenFromBearer(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromBearer("Bearer abc"))
	assert.Empty(t, ExtractTokenFromBearer("abc"))
	assert.Empty(t, ExtractTokenFromBearer(""))
	assert.Empty(t, ExtractTokenFromBearer("Bearer "))
}

func TestHashToken_Deterministic(t *testing.T) {
	first := HashToken("some-token")
	assert.Equal(t, first, HashToken("some-token"))
	assert.NotEqual(t, first, HashToken("other-token"))
	assert.Len(t, first, 64)
}
