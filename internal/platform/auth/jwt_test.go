package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_AccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, 7*24*time.Hour)
	userID := uuid.New()

	token, err := m.GenerateAccessToken(userID, RoleDriver)
	require.NoError(t, err)

	claims, err := m.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, RoleDriver, claims.Role)
}

func TestJWTManager_RefreshTokenExchange(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, 7*24*time.Hour)
	userID := uuid.New()

	refresh, err := m.GenerateRefreshToken(userID, RoleDriver)
	require.NoError(t, err)

	claims, err := m.VerifyRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, RoleDriver, claims.Role)
}

func TestJWTManager_RefreshTokenCannotAuthenticate(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, 7*24*time.Hour)

	refresh, err := m.GenerateRefreshToken(uuid.New(), RoleDriver)
	require.NoError(t, err)

	_, err = m.VerifyToken(refresh)
	assert.Error(t, err)
}

func TestJWTManager_AccessTokenIsNotARefreshToken(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, 7*24*time.Hour)

	access, err := m.GenerateAccessToken(uuid.New(), RoleDriver)
	require.NoError(t, err)

	_, err = m.VerifyRefreshToken(access)
	assert.Error(t, err)
}

func TestJWTManager_WrongSecretRejected(t *testing.T) {
	issuer := NewJWTManager("secret-a", time.Hour, time.Hour)
	verifier := NewJWTManager("secret-b", time.Hour, time.Hour)

	token, err := issuer.GenerateAccessToken(uuid.New(), RoleAdmin)
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	assert.Error(t, err)
}

func TestJWTManager_ExpiredTokenRejected(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute, -time.Minute)

	token, err := m.GenerateAccessToken(uuid.New(), RoleDriver)
	require.NoError(t, err)

	_, err = m.VerifyToken(token)
	assert.Error(t, err)
}
