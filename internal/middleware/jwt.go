package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"restaurant_reviews/internal/response" // Uniform error bodies
	"restaurant_reviews/internal/utils"    // JWT and revocation helpers

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Context keys set by JWTAuthMiddleware
const (
	UserIDKey = "userID" // uint ID of the authenticated user
	ClaimsKey = "claims" // *utils.Claims of the presented token
)

// JWTAuthMiddleware validates bearer tokens, rejects revoked ones and stores the caller in the context
func JWTAuthMiddleware(issuer *utils.TokenIssuer, revoker utils.TokenRevoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			response.Error(c, http.StatusUnauthorized, response.MsgUnauthenticated)
			return
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")) // Extract the token string
		claims, err := issuer.Parse(tokenStr)                                    // Parse the JWT token
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.MsgUnauthenticated)
			return
		}
		revoked, err := revoker.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": claims.UserID,
				"error":   err.Error(),
			}).Error("Token revocation lookup failed")
			response.Internal(c)
			return
		}
		if revoked {
			response.Error(c, http.StatusUnauthorized, response.MsgUnauthenticated)
			return
		}
		c.Set(UserIDKey, claims.UserID) // Store userID in context
		c.Set(ClaimsKey, claims)        // Store claims for logout
		c.Next()                        // Proceed to the next handler
	}
}

// CurrentClaims returns the claims stored by JWTAuthMiddleware
func CurrentClaims(c *gin.Context) (*utils.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*utils.Claims)
	return claims, ok
}
