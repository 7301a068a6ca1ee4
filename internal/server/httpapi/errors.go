package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/gin-gonic/gin"
)

const msgInternal = "Internal server error"

// writeError maps service errors onto the {error} envelope. Unknown errors
// are logged and answered with a generic 500.
func (s *HTTPServer) writeError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, msgInternal

	switch {
	case errors.Is(err, common.ErrorValidation):
		status, msg = http.StatusBadRequest, validationMessage(err)
	case errors.Is(err, common.ErrInvalidOrExpiredToken):
		status, msg = http.StatusBadRequest, "Invalid or expired token"
	case errors.Is(err, common.ErrorUnauthorized):
		status, msg = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, common.ErrorForbidden):
		status, msg = http.StatusForbidden, "Forbidden"
	case errors.Is(err, common.ErrorNotFound):
		status, msg = http.StatusNotFound, "Not found"
	case errors.Is(err, common.ErrTooManyRequests):
		status, msg = http.StatusTooManyRequests, "Too many requests"
	default:
		s.logger.Error(c.Request.Context(), "request failed",
			"request_id", c.GetString(requestIDKey), "path", c.FullPath(), "error", err)
	}

	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// validationMessage keeps the detail of a wrapped validation error,
// e.g. "password must be at least 8 characters", and says "Invalid" otherwise.
func validationMessage(err error) string {
	prefix := common.ErrorValidation.Error() + ": "
	if msg, ok := strings.CutPrefix(err.Error(), prefix); ok && msg != "" {
		return msg
	}
	return "Invalid"
}
