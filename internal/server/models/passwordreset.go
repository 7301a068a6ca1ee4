package models

import "time"

// PasswordResetRequest is an outstanding reset for an email address.
// Only the bcrypt hash of the token is stored.
type PasswordResetRequest struct {
	ID        string
	Email     string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the request can no longer be used at now.
// A request is still valid at exactly ExpiresAt.
func (r *PasswordResetRequest) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
