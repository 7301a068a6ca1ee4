package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Gate decides, from the path and cookie presence alone, whether a request
// is redirected before reaching any handler.
type Gate struct {
	ProtectedPrefixes []string
	LoginPath         string
	LandingPath       string
}

// Decide returns the redirect target and true when the request must be
// redirected. Requests for the login path with a session go to the landing
// path; protected paths without a session go to the login path.
func (g Gate) Decide(path string, hasSession bool) (string, bool) {
	if path == g.LoginPath {
		if hasSession {
			return g.LandingPath, true
		}
		return "", false
	}
	if hasSession {
		return "", false
	}
	for _, prefix := range g.ProtectedPrefixes {
		if matchesPrefix(path, prefix) {
			return g.LoginPath, true
		}
	}
	return "", false
}

// matchesPrefix matches whole path segments: "/admin" covers "/admin" and
// "/admin/x" but not "/administrator".
func matchesPrefix(path, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// Middleware redirects with 307 according to Decide. Only cookie presence
// is checked; handlers still resolve the session.
func (g Gate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		target, redirect := g.Decide(c.Request.URL.Path, readSessionCookies(c).Has())
		if redirect {
			c.Redirect(http.StatusTemporaryRedirect, target)
			c.Abort()
			return
		}
		c.Next()
	}
}
