package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shulepay/backend/internal/domain/shared"
	"github.com/shulepay/backend/internal/interfaces/http/dto"
	"github.com/shulepay/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides the response helpers every handler embeds
type BaseHandler struct {
	logger *zap.Logger
}

// NewBaseHandler creates a new base handler
func NewBaseHandler(logger *zap.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// Success sends a 200 response with data
func (h *BaseHandler) Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a 200 response with data and pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data interface{}, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 response with data
func (h *BaseHandler) Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response for the given API error code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 validation error response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeValidation, message)
}

// NotFound sends a 404 response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeNotFound, message)
}

// SchoolScope returns the authenticated school from the request context,
// responding 401 when it is absent
func (h *BaseHandler) SchoolScope(c *gin.Context) (uuid.UUID, bool) {
	schoolID, ok := middleware.GetSchoolID(c)
	if !ok {
		h.Error(c, dto.ErrCodeUnauthorized, "Missing school scope")
		return uuid.Nil, false
	}
	return schoolID, true
}

// ActorID returns the authenticated user as an audit actor, or nil
func (h *BaseHandler) ActorID(c *gin.Context) *uuid.UUID {
	if userID, ok := middleware.GetUserID(c); ok {
		return &userID
	}
	return nil
}

// HandleError maps an error to an API response. Domain errors carry their
// own code; anything else is an internal error that gets logged but never
// leaks its message to the client.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.Error(c, code, domainErr.Message)
		return
	}

	h.logger.Error("unhandled error",
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Error(err))
	h.Error(c, dto.ErrCodeInternalError, "Internal server error")
}
