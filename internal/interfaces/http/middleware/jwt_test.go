package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shulepay/backend/internal/infrastructure/auth"
	"github.com/shulepay/backend/internal/infrastructure/config"
)

func newAuthRouter(jwtService *auth.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/protected", JWTAuth(jwtService), func(c *gin.Context) {
		schoolID, _ := GetSchoolID(c)
		userID, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{
			"school_id": schoolID.String(),
			"user_id":   userID.String(),
		})
	})
	return engine
}

func newJWTService(expiration time.Duration) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:     "test-secret-at-least-32-characters-long",
		Expiration: expiration,
		Issuer:     "shulepay-backend",
	})
}

func TestJWTAuth_AllowsValidToken(t *testing.T) {
	svc := newJWTService(time.Hour)
	engine := newAuthRouter(svc)
	schoolID := uuid.New()

	token, _, err := svc.GenerateToken(auth.GenerateTokenInput{
		SchoolID: schoolID,
		UserID:   uuid.New(),
		Username: "bursar",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), schoolID.String())
}

func TestJWTAuth_RejectsMissingHeader(t *testing.T) {
	engine := newAuthRouter(newJWTService(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_UNAUTHORIZED")
}

func TestJWTAuth_RejectsMalformedHeader(t *testing.T) {
	engine := newAuthRouter(newJWTService(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc123")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_RejectsExpiredToken(t *testing.T) {
	svc := newJWTService(-time.Minute)
	engine := newAuthRouter(svc)

	token, _, err := svc.GenerateToken(auth.GenerateTokenInput{
		SchoolID: uuid.New(),
		UserID:   uuid.New(),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired")
}
