package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shulepay/backend/internal/infrastructure/config"
)

func newTestService(expiration time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:     "test-secret-at-least-32-characters-long",
		Expiration: expiration,
		Issuer:     "shulepay-backend",
	})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestService(time.Hour)
	schoolID := uuid.New()
	userID := uuid.New()

	token, expiresAt, err := svc.GenerateToken(GenerateTokenInput{
		SchoolID: schoolID,
		UserID:   userID,
		Username: "bursar",
		Role:     "admin",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, schoolID.String(), claims.SchoolID)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "bursar", claims.Username)
	assert.Equal(t, "admin", claims.Role)

	gotSchool, err := claims.GetSchoolUUID()
	require.NoError(t, err)
	assert.Equal(t, schoolID, gotSchool)
}

func TestJWTService_ValidateToken_Expired(t *testing.T) {
	svc := newTestService(-time.Minute)

	token, _, err := svc.GenerateToken(GenerateTokenInput{
		SchoolID: uuid.New(),
		UserID:   uuid.New(),
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_ValidateToken_WrongSecret(t *testing.T) {
	svc := newTestService(time.Hour)
	other := NewJWTService(config.JWTConfig{
		Secret:     "a-completely-different-signing-secret!!",
		Expiration: time.Hour,
		Issuer:     "shulepay-backend",
	})

	token, _, err := svc.GenerateToken(GenerateTokenInput{
		SchoolID: uuid.New(),
		UserID:   uuid.New(),
	})
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_ValidateToken_Garbage(t *testing.T) {
	svc := newTestService(time.Hour)

	_, err := svc.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
