// Package auth resolves the caller's session into an explicit struct.
// Handlers receive the session as a value; nothing in the domain reads
// ambient request state.
package auth

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const sessionKey = "vales.session"

// SessionContext identifies the caller and the site they operate on.
type SessionContext struct {
	UserID     string
	UserName   string
	SiteID     string
	CostCenter string
}

// FolioPrefix returns the folio prefix of the session's cost center,
// e.g. cost center "CD-140" yields "CD-140-".
func (s SessionContext) FolioPrefix() string {
	return fmt.Sprintf("%s-", s.CostCenter)
}

// Middleware extracts the session from request headers set by the site
// gateway. Requests without a site are rejected before reaching handlers.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := SessionContext{
			UserID:     c.GetHeader("X-User-Id"),
			UserName:   c.GetHeader("X-User-Name"),
			SiteID:     c.GetHeader("X-Site-Id"),
			CostCenter: c.GetHeader("X-Cost-Center"),
		}
		if session.SiteID == "" || session.CostCenter == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing site headers",
			})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// FromGin returns the session resolved by Middleware.
func FromGin(c *gin.Context) (SessionContext, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return SessionContext{}, false
	}
	session, ok := v.(SessionContext)
	return session, ok
}
