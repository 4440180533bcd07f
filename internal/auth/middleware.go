package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const sessionKey = "session"

// Middleware verifies the Bearer token and attaches the resulting Session
// to the request context.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		session, err := a.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// RequireJefe aborts requests whose session lacks supervisor access.
func RequireJefe() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok || !session.IsJefe() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "supervisor access required"})
			return
		}
		c.Next()
	}
}

// SessionFrom extracts the Session placed by Middleware.
func SessionFrom(c *gin.Context) (Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return Session{}, false
	}
	session, ok := v.(Session)
	return session, ok
}
