package middleware

import (
	"log"
	"net/http"

	"deview/internal/session"

	"github.com/gin-gonic/gin"
)

// SessionCookie names the cookie carrying the browser's session id.
const SessionCookie = "deview_session"

const sessionKey = "session"

// EnsureSession resolves the session cookie to a live session, creating one
// (and issuing a new cookie) when the cookie is missing or stale.
func EnsureSession(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, _ := c.Cookie(SessionCookie)
		s, created := manager.Acquire(raw)
		if created {
			log.Printf("[EnsureSession] Started session %s", s.ID)
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, s.ID.String(), 0, "/", "", false, true)
		}
		c.Set(sessionKey, s)
		c.Next()
	}
}

// Session returns the session attached by EnsureSession.
func Session(c *gin.Context) *session.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*session.Session); ok {
			return s
		}
	}
	return nil
}
