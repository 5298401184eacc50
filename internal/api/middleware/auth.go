package middleware

import (
	"net/http"
	"strings"

	"github.com/go4itsports/licensing/internal/auth"
	"github.com/gin-gonic/gin"
)

// claimsContextKey is the gin context key for verified token claims.
const claimsContextKey = "customer_claims"

// RequireCustomer returns a middleware that validates the bearer token and
// injects the customer claims into the request context.
func RequireCustomer(issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			return
		}

		claims, err := issuer.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// CustomerClaims returns the verified claims from the request context, or
// nil if the request is unauthenticated.
func CustomerClaims(c *gin.Context) *auth.Claims {
	if val, exists := c.Get(claimsContextKey); exists {
		if claims, ok := val.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
