package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"authgate/internal/gate/handler"
	"authgate/internal/security"
)

// RequireAuth validates the caller's access token and stores the session and
// account ids in the gin context. The token comes from the Authorization
// header (Bearer scheme) or the access cookie.
func RequireAuth(tokens *security.TokenProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			var err error
			raw, err = c.Cookie("accessToken")
			if err != nil || raw == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
				return
			}
		}

		sessionID, accountID, role, err := tokens.ValidateAccess(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(handler.SessionKey, sessionID)
		c.Set("auth.account_id", accountID)
		c.Set("auth.role", role)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
