package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/cryptox"
	"github.com/dmitrijs2005/eduportal/internal/logging"
	"github.com/dmitrijs2005/eduportal/internal/server/models"
	"github.com/dmitrijs2005/eduportal/internal/server/notify"
	"github.com/dmitrijs2005/eduportal/internal/server/repositories/repomanager"
)

// ResetTicket describes an issued reset token. Issued is false, and the
// other fields empty, when the email belongs to nobody.
type ResetTicket struct {
	Issued    bool
	Email     string
	Token     string
	ExpiresAt time.Time
}

// PasswordResetService issues single-use reset tokens and consumes them.
type PasswordResetService struct {
	repomanager repomanager.RepositoryManager
	hasher      *cryptox.Hasher
	notifier    notify.Notifier
	policy      PasswordPolicy
	ttl         time.Duration
	now         func() time.Time
	log         logging.Logger
}

func NewPasswordResetService(m repomanager.RepositoryManager, hasher *cryptox.Hasher, notifier notify.Notifier, ttl time.Duration, log logging.Logger) *PasswordResetService {
	return &PasswordResetService{
		repomanager: m,
		hasher:      hasher,
		notifier:    notifier,
		policy:      DefaultPasswordPolicy,
		ttl:         ttl,
		now:         time.Now,
		log:         log.With("module", "password_reset"),
	}
}

// WithPasswordPolicy replaces DefaultPasswordPolicy for new passwords.
func (s *PasswordResetService) WithPasswordPolicy(p PasswordPolicy) *PasswordResetService {
	s.policy = p
	return s
}

// RequestReset issues a token for email when it belongs to an admin or a
// user, replacing any earlier request for the same email. The new request
// is stored before older ones are dropped, so a failed insert leaves the
// previous token usable on stores without transactions. Unknown emails
// produce an empty ticket and no error, so callers cannot tell them apart.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (*ResetTicket, error) {
	email = common.NormalizeEmail(email)
	if email == "" {
		return nil, common.ErrorValidation
	}

	p, err := findByEmail(ctx, s.repomanager, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Info(ctx, "reset requested for unknown email", "email", common.MaskEmail(email))
			// match the bcrypt cost of a known email
			if _, _, err := s.hasher.NewResetToken(); err != nil {
				s.log.Debug(ctx, "dummy reset token failed", "error", err)
			}
			return &ResetTicket{}, nil
		}
		s.log.Error(ctx, "reset lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	raw, hash, err := s.hasher.NewResetToken()
	if err != nil {
		s.log.Error(ctx, "reset token generation failed", "error", err)
		return nil, common.ErrorInternal
	}

	now := s.now()
	req := &models.PasswordResetRequest{
		Email:     email,
		TokenHash: hash,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}

	err = s.repomanager.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		if err := repos.ResetRequests().Create(ctx, req); err != nil {
			return err
		}
		return repos.ResetRequests().DeleteOthers(ctx, email, req.ID)
	})
	if err != nil {
		s.log.Error(ctx, "reset request store failed", "error", err)
		return nil, common.ErrorInternal
	}

	// the request is stored; a delivery failure is logged, not surfaced,
	// so the response stays the same as for an unknown email
	if err := s.notifier.NotifyPasswordReset(ctx, notify.PasswordReset{
		Email:     email,
		Token:     raw,
		ExpiresAt: req.ExpiresAt,
	}); err != nil {
		s.log.Error(ctx, "reset notification failed", "email", common.MaskEmail(email), "error", err)
	}

	s.log.Info(ctx, "reset requested", "kind", p.Kind, "email", common.MaskEmail(email))
	return &ResetTicket{Issued: true, Email: email, Token: raw, ExpiresAt: req.ExpiresAt}, nil
}

// ResetPassword sets a new password using a token from RequestReset. A
// missing, mismatching or expired token yields
// common.ErrInvalidOrExpiredToken. On success every reset request for the
// email is removed together with the password update.
func (s *PasswordResetService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	email = common.NormalizeEmail(email)
	if email == "" || newPassword == "" {
		return common.ErrorValidation
	}
	if token == "" {
		return common.ErrInvalidOrExpiredToken
	}
	if err := s.policy.Validate(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return common.ErrorInternal
	}

	var kind models.Kind
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		req, err := repos.ResetRequests().FindLatest(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidOrExpiredToken
			}
			return err
		}
		if req.Expired(s.now()) || !s.hasher.Compare(req.TokenHash, token) {
			return common.ErrInvalidOrExpiredToken
		}

		p, err := findByEmail(ctx, repos, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidOrExpiredToken
			}
			return err
		}
		kind = p.Kind

		if err := repos.Principals().UpdatePassword(ctx, p.Kind, p.ID, hash); err != nil {
			return err
		}
		return repos.ResetRequests().DeleteByEmail(ctx, email)
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidOrExpiredToken) {
			s.log.Info(ctx, "reset rejected", "email", common.MaskEmail(email))
			return common.ErrInvalidOrExpiredToken
		}
		s.log.Error(ctx, "reset failed", "error", err)
		return common.ErrorInternal
	}

	s.log.Info(ctx, "password reset", "kind", kind, "email", common.MaskEmail(email))
	return nil
}

// ForceReset sets a new password without a token. Callers must have
// verified that the requester is an admin. Outstanding reset requests for
// the email are dropped.
func (s *PasswordResetService) ForceReset(ctx context.Context, email, newPassword string) error {
	email = common.NormalizeEmail(email)
	if email == "" || newPassword == "" {
		return common.ErrorValidation
	}
	if err := s.policy.Validate(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return common.ErrorInternal
	}

	var kind models.Kind
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		p, err := findByEmail(ctx, repos, email)
		if err != nil {
			return err
		}
		kind = p.Kind

		if err := repos.Principals().UpdatePassword(ctx, p.Kind, p.ID, hash); err != nil {
			return err
		}
		return repos.ResetRequests().DeleteByEmail(ctx, email)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		s.log.Error(ctx, "forced reset failed", "error", err)
		return common.ErrorInternal
	}

	s.log.Warn(ctx, "password force-reset", "kind", kind, "email", common.MaskEmail(email))
	return nil
}
