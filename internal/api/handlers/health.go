package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger reports database liveness and pool statistics.
type Pinger interface {
	Ping(ctx context.Context) error
	Health() map[string]any
}

// HealthHandler serves liveness and version endpoints.
type HealthHandler struct {
	db        Pinger
	version   string
	commit    string
	buildDate string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, version, commit, buildDate string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
	}
}

// RegisterRoutes registers health routes on the engine root.
func (h *HealthHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/version", h.Version)
}

// Health reports server and database health.
func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": h.db.Health(),
	})
}

// Version reports build information.
func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    h.version,
		"commit":     h.commit,
		"build_date": h.buildDate,
	})
}
