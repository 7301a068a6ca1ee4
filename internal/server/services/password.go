package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/server/models"
	"github.com/dmitrijs2005/eduportal/internal/server/repositories/repomanager"
)

// MaxPasswordLength is the bcrypt input limit in bytes.
const MaxPasswordLength = 72

// PasswordPolicy bounds new passwords. MinLength below 1 is treated as 1.
type PasswordPolicy struct {
	MinLength int
}

// DefaultPasswordPolicy only requires a non-empty password.
var DefaultPasswordPolicy = PasswordPolicy{MinLength: 1}

// Validate checks password against the policy and the bcrypt ceiling.
func (p PasswordPolicy) Validate(password string) error {
	minLength := max(p.MinLength, 1)
	if len(password) < minLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrorValidation, minLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("%w: password must be at most %d bytes", common.ErrorValidation, MaxPasswordLength)
	}
	return nil
}

// findByEmail looks the email up as an admin first, then as a user.
func findByEmail(ctx context.Context, repos repomanager.Repositories, email string) (*models.Principal, error) {
	for _, kind := range models.Kinds {
		p, err := repos.Principals().GetByEmail(ctx, kind, email)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
	}
	return nil, common.ErrorNotFound
}
