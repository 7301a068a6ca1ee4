// Package principals declares the credential store contract for admins and
// site users, and its Postgres, MongoDB and in-memory implementations.
package principals

import (
	"context"

	"github.com/dmitrijs2005/eduportal/internal/server/models"
)

// Repository stores principals of both kinds. Every lookup is scoped by kind;
// emails are expected to be normalized by the caller.
type Repository interface {
	// Create inserts p and returns it with ID and timestamps populated.
	// A duplicate email within the kind yields common.ErrorAlreadyExists.
	Create(ctx context.Context, p *models.Principal) (*models.Principal, error)

	// GetByID returns common.ErrorInvalidID when id is not in the backend's
	// identifier format and common.ErrorNotFound when no record matches.
	GetByID(ctx context.Context, kind models.Kind, id string) (*models.Principal, error)

	// GetByEmail returns common.ErrorNotFound when no record matches.
	GetByEmail(ctx context.Context, kind models.Kind, email string) (*models.Principal, error)

	// UpdatePassword stores a new hash and clears MustChangePassword.
	UpdatePassword(ctx context.Context, kind models.Kind, id string, passwordHash string) error
}
