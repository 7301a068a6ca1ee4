// Package common contains shared constants and sentinel errors used across
// eduportal components.
package common

const (
	// AdminSessionCookie carries the session of an administrator.
	AdminSessionCookie = "admin_session"
	// UserSessionCookie carries the session of a regular site user.
	UserSessionCookie = "user_session"

	// RequestIDHeaderName is the header used to correlate log lines with a request.
	RequestIDHeaderName = "X-Request-ID"
)
