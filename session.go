package web

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ktlib-org/web/pkg/config"
	"github.com/ktlib-org/web/pkg/trace"
)

// SessionCookie is the name of the session identifier cookie.
const SessionCookie = "ktlibSessionId"

const sessionContextKey = "web.sessionId"

// sessionMiddleware issues the session cookie on the first request lacking it
// and attaches the session id to the request trace. The cookie is HTTP-only
// and marked Secure outside the local environment.
func sessionMiddleware(env config.Environment) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookie)
		if err != nil || id == "" {
			id = uuid.NewString()
			c.SetCookie(SessionCookie, id, 0, "/", "", !env.IsLocal(), true)
		}

		c.Set(sessionContextKey, id)
		if t, ok := trace.From(c.Request.Context()); ok {
			t.SessionID = id
		}

		c.Next()
	}
}

// SessionID returns the session id for the request, whether it arrived on
// the cookie or was issued just now.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionContextKey)
}
