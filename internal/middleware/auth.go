package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/IvoireMarket/shop-api/internal/httperr"
	"github.com/IvoireMarket/shop-api/internal/models"
	"github.com/IvoireMarket/shop-api/internal/token"
)

const (
	ContextUserID    = "userID"
	ContextUserEmail = "userEmail"
	ContextUserRole  = "userRole"

	// Single canonical cookie name for the whole API.
	SessionCookie = "auth_token"
)

// tokenFromRequest prefers the Authorization header, falling back to the
// session cookie.
func tokenFromRequest(c *gin.Context) string {
	if ah := c.GetHeader("Authorization"); ah != "" {
		parts := strings.SplitN(ah, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	if v, err := c.Cookie(SessionCookie); err == nil {
		return v
	}
	return ""
}

func AuthMiddleware(codec *token.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			httperr.Unauthorized(c, "missing_token", "Authentification requise.")
			c.Abort()
			return
		}

		claims, err := codec.Verify(tokenString)
		if err != nil {
			code := "invalid_token"
			if errors.Is(err, token.ErrExpired) {
				code = "token_expired"
			}
			httperr.Unauthorized(c, code, "Session invalide ou expirée.")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextUserRole, claims.Role)

		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}

func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		httperr.Forbidden(c, "insufficient_role", "Accès réservé.")
		c.Abort()
	}
}
