package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go4itsports/licensing/internal/api/middleware"
	"github.com/go4itsports/licensing/internal/license"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CustomerHandler serves license information to authenticated customers.
type CustomerHandler struct {
	service *license.Service
	logger  zerolog.Logger
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(service *license.Service, logger zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{
		service: service,
		logger:  logger.With().Str("component", "customer_handler").Logger(),
	}
}

// RegisterRoutes registers customer routes on the given router group. The
// group must already enforce bearer authentication.
func (h *CustomerHandler) RegisterRoutes(r *gin.RouterGroup) {
	customer := r.Group("/customer")
	{
		customer.GET("/license", h.License)
		customer.GET("/validations", h.Validations)
	}
}

// License returns the authenticated customer's license summary.
func (h *CustomerHandler) License(c *gin.Context) {
	claims := middleware.CustomerClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
		return
	}

	info, err := h.service.LicenseInfo(c.Request.Context(), claims.CustomerID)
	if err != nil {
		if errors.Is(err, license.ErrNoLicense) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No license found"})
			return
		}
		h.logger.Error().Err(err).Str("customer_id", claims.CustomerID.String()).Msg("failed to load license info")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, info)
}

// Validations returns recent validation audit rows for the customer's license.
func (h *CustomerHandler) Validations(c *gin.Context) {
	claims := middleware.CustomerClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	validations, err := h.service.RecentValidations(c.Request.Context(), claims.CustomerID, limit)
	if err != nil {
		if errors.Is(err, license.ErrNoLicense) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No license found"})
			return
		}
		h.logger.Error().Err(err).Str("customer_id", claims.CustomerID.String()).Msg("failed to load validations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"validations": validations})
}
