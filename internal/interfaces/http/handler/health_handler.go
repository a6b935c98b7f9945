package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shulepay/backend/internal/infrastructure/persistence"
)

// HealthHandler exposes liveness and readiness probes
type HealthHandler struct {
	BaseHandler
	db      *persistence.Database
	version string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *persistence.Database, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		BaseHandler: NewBaseHandler(logger),
		db:          db,
		version:     version,
	}
}

// Live handles GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

// Ready handles GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		h.logger.Warn("readiness probe failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}
