// Package handlers implements the HTTP handlers for the license server API.
package handlers

import (
	"errors"
	"net/http"

	"github.com/go4itsports/licensing/internal/license"
	"github.com/go4itsports/licensing/internal/metrics"
	"github.com/go4itsports/licensing/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ValidateHandler handles the license validation endpoint called by
// self-hosted deployments.
type ValidateHandler struct {
	service *license.Service
	logger  zerolog.Logger
}

// NewValidateHandler creates a new ValidateHandler.
func NewValidateHandler(service *license.Service, logger zerolog.Logger) *ValidateHandler {
	return &ValidateHandler{
		service: service,
		logger:  logger.With().Str("component", "validate_handler").Logger(),
	}
}

// RegisterRoutes registers the validation route on the given router group.
func (h *ValidateHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/validate", h.Validate)
}

// Validate checks a license key against the subscription state, binds the
// server fingerprint on first use, and returns the unlocked feature set.
func (h *ValidateHandler) Validate(c *gin.Context) {
	var req models.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	resp, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		h.handleValidateError(c, req, err)
		return
	}

	metrics.ValidationsTotal.WithLabelValues(metrics.OutcomeValid).Inc()
	c.JSON(http.StatusOK, resp)
}

func (h *ValidateHandler) handleValidateError(c *gin.Context, req models.ValidateRequest, err error) {
	var inactiveErr *license.SubscriptionInactiveError
	var expiredErr *license.SubscriptionExpiredError

	switch {
	case errors.Is(err, license.ErrLicenseNotFound):
		metrics.ValidationsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid license key"})

	case errors.As(err, &inactiveErr):
		metrics.ValidationsTotal.WithLabelValues(metrics.OutcomeInactive).Inc()
		c.JSON(http.StatusForbidden, gin.H{
			"error":      "Subscription inactive",
			"status":     inactiveErr.Status,
			"renewalUrl": inactiveErr.RenewalURL,
		})

	case errors.As(err, &expiredErr):
		metrics.ValidationsTotal.WithLabelValues(metrics.OutcomeExpired).Inc()
		c.JSON(http.StatusForbidden, gin.H{
			"error":      "Subscription expired",
			"expiredAt":  expiredErr.ExpiredAt,
			"renewalUrl": expiredErr.RenewalURL,
		})

	case errors.Is(err, license.ErrFingerprintMismatch):
		metrics.ValidationsTotal.WithLabelValues(metrics.OutcomeFingerprintMismatch).Inc()
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "License bound to different server",
			"support": "Contact support to transfer license",
		})

	default:
		metrics.ValidationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		h.logger.Error().Err(err).
			Str("server_fingerprint", req.ServerFingerprint).
			Msg("license validation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
