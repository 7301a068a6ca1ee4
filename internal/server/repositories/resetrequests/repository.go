// Package resetrequests declares the repository contract for outstanding
// password-reset requests and its Postgres, MongoDB and in-memory
// implementations.
package resetrequests

import (
	"context"

	"github.com/dmitrijs2005/eduportal/internal/server/models"
)

// Repository stores password-reset requests keyed by normalized email.
type Repository interface {
	// Create stores req and populates its ID.
	Create(ctx context.Context, req *models.PasswordResetRequest) error

	// FindLatest returns the most recently created request for email,
	// regardless of expiry. Implementations return common.ErrorNotFound
	// when there is none.
	FindLatest(ctx context.Context, email string) (*models.PasswordResetRequest, error)

	// DeleteOthers removes every request for email except the one with
	// keepID.
	DeleteOthers(ctx context.Context, email, keepID string) error

	// DeleteByEmail removes every request for email. Deleting nothing is not
	// an error.
	DeleteByEmail(ctx context.Context, email string) error
}
