package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-testing"

func TestGenerateTokenPair(t *testing.T) {
	userID := 123

	tokenPair, err := GenerateTokenPair(userID, testSecret)

	require.NoError(t, err)
	require.NotNil(t, tokenPair)

	assert.NotEmpty(t, tokenPair.AccessToken)
	assert.NotEmpty(t, tokenPair.RefreshToken)
	assert.Equal(t, int64(900), tokenPair.ExpiresIn)
	assert.NotEqual(t, tokenPair.AccessToken, tokenPair.RefreshToken)

	accessClaims, err := ValidateToken(tokenPair.AccessToken, testSecret)
	require.NoError(t, err)
	assert.Equal(t, userID, accessClaims.UserID)
	assert.Equal(t, AccessToken, accessClaims.Type)

	refreshClaims, err := ValidateToken(tokenPair.RefreshToken, testSecret)
	require.NoError(t, err)
	assert.Equal(t, userID, refreshClaims.UserID)
	assert.Equal(t, RefreshToken, refreshClaims.Type)
}

func TestValidateToken_ValidToken(t *testing.T) {
	userID := 456
	token, err := generateToken(userID, AccessToken, 15*time.Minute, testSecret)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)

	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, AccessToken, claims.Type)
}

func TestValidateToken_InvalidSecret(t *testing.T) {
	token, err := generateToken(789, AccessToken, 15*time.Minute, testSecret)
	require.NoError(t, err)

	claims, err := ValidateToken(token, "wrong-secret")

	assert.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_ExpiredToken(t *testing.T) {
	token, err := generateToken(101, AccessToken, -1*time.Hour, testSecret)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)

	assert.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	claims, err := ValidateToken("not-a-jwt", testSecret)

	assert.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenPair_RotatesPair(t *testing.T) {
	pair, err := GenerateTokenPair(42, testSecret)
	require.NoError(t, err)

	rotated, err := RefreshTokenPair(pair.RefreshToken, testSecret)

	require.NoError(t, err)
	require.NotNil(t, rotated)
	assert.NotEmpty(t, rotated.AccessToken)
	assert.NotEmpty(t, rotated.RefreshToken)

	claims, err := ValidateToken(rotated.AccessToken, testSecret)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
}

func TestRefreshTokenPair_RejectsAccessToken(t *testing.T) {
	pair, err := GenerateTokenPair(42, testSecret)
	require.NoError(t, err)

	rotated, err := RefreshTokenPair(pair.AccessToken, testSecret)

	assert.Error(t, err)
	assert.Nil(t, rotated)
}

func TestGetUserIDFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetUserIDFromContext(c)
	assert.Error(t, err)

	c.Set(UserIDKey, 7)
	id, err := GetUserIDFromContext(c)
	require.NoError(t, err)
	assert.Equal(t, 7, id)
}
