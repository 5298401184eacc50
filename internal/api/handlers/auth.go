package handlers

import (
	"errors"
	"net/http"

	"github.com/go4itsports/licensing/internal/auth"
	"github.com/go4itsports/licensing/internal/license"
	"github.com/go4itsports/licensing/internal/metrics"
	"github.com/go4itsports/licensing/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuthHandler handles customer portal authentication.
type AuthHandler struct {
	service *license.Service
	issuer  *auth.TokenIssuer
	logger  zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service *license.Service, issuer *auth.TokenIssuer, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		issuer:  issuer,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterRoutes registers auth routes on the given router group.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
}

// Login authenticates a customer and issues a signed session token. The
// failure response is identical for unknown emails and wrong passwords so
// the endpoint cannot be used to enumerate accounts.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	customer, err := h.service.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, license.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("denied").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		h.logger.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := h.issuer.Issue(customer.ID, customer.Email)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		h.logger.Error().Err(err).Str("customer_id", customer.ID.String()).Msg("failed to issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	h.logger.Info().
		Str("customer_id", customer.ID.String()).
		Str("email", customer.Email).
		Msg("customer logged in")

	c.JSON(http.StatusOK, models.LoginResponse{
		Token:    token,
		Customer: customer.ToSummary(),
	})
}
