package httpapi

import (
	"time"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/server/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey = "request_id"
	principalKey = "principal"
)

// requestLogger tags the request with an id (taken from X-Request-ID when
// present) and logs one line when it completes.
func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(common.RequestIDHeaderName)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(common.RequestIDHeaderName, id)

		c.Next()

		s.logger.Info(c.Request.Context(), "http request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// rateLimit rejects requests once the client IP has spent its budget for
// scope. A limiter failure lets the request through.
func (s *HTTPServer) rateLimit(l ratelimit.Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := l.Allow(c.Request.Context(), scope+":"+c.ClientIP())
		if err != nil {
			s.logger.Warn(c.Request.Context(), "rate limiter unavailable", "scope", scope, "error", err)
			c.Next()
			return
		}
		if !ok {
			s.writeError(c, common.ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
