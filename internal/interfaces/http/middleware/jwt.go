package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shulepay/backend/internal/infrastructure/auth"
	"github.com/shulepay/backend/internal/interfaces/http/dto"
)

// Context keys for authenticated identity
const (
	ContextKeySchoolID = "auth_school_id"
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
)

// JWTAuth validates the Authorization header and stores the token's identity
// in the gin context. Every guarded handler reads the school scope from the
// token, never from the request body.
func JWTAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			abortUnauthorized(c, "Missing authorization token")
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, authErrorMessage(err))
			return
		}

		schoolID, err := claims.GetSchoolUUID()
		if err != nil {
			abortUnauthorized(c, "Invalid school scope in token")
			return
		}
		userID, err := claims.GetUserUUID()
		if err != nil {
			abortUnauthorized(c, "Invalid user identity in token")
			return
		}

		c.Set(ContextKeySchoolID, schoolID)
		c.Set(ContextKeyUserID, userID)
		c.Set(ContextKeyUsername, claims.Username)
		c.Set(ContextKeyRole, claims.Role)
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return "Token is not yet valid"
	case errors.Is(err, auth.ErrMissingSchoolID), errors.Is(err, auth.ErrMissingUserID):
		return "Token is missing required claims"
	default:
		return "Invalid authorization token"
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponse(dto.ErrCodeUnauthorized, message, GetRequestID(c)))
}

// GetSchoolID returns the authenticated school scope. The second return is
// false when the middleware did not run on this route.
func GetSchoolID(c *gin.Context) (uuid.UUID, bool) {
	return getUUID(c, ContextKeySchoolID)
}

// GetUserID returns the authenticated user ID
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	return getUUID(c, ContextKeyUserID)
}

func getUUID(c *gin.Context, key string) (uuid.UUID, bool) {
	v, exists := c.Get(key)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
