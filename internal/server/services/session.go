package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/cryptox"
	"github.com/dmitrijs2005/eduportal/internal/logging"
	"github.com/dmitrijs2005/eduportal/internal/server/auth"
	"github.com/dmitrijs2005/eduportal/internal/server/models"
	"github.com/dmitrijs2005/eduportal/internal/server/repositories/repomanager"
)

// SessionCookies are the raw session cookie values of one request.
// Empty means the cookie was absent.
type SessionCookies struct {
	Admin string
	User  string
}

// Has reports whether either session cookie is present.
func (c SessionCookies) Has() bool {
	return c.Admin != "" || c.User != ""
}

func (c SessionCookies) value(kind models.Kind) string {
	if kind == models.KindAdmin {
		return c.Admin
	}
	return c.User
}

// Session is a cookie to set on the response.
type Session struct {
	CookieName string
	Value      string
}

// CookieName returns the session cookie used for kind.
func CookieName(kind models.Kind) string {
	if kind == models.KindAdmin {
		return common.AdminSessionCookie
	}
	return common.UserSessionCookie
}

// SessionService resolves and issues cookie sessions for admins and users.
type SessionService struct {
	repomanager repomanager.RepositoryManager
	hasher      *cryptox.Hasher
	codec       auth.Codec
	policy      PasswordPolicy
	log         logging.Logger
}

func NewSessionService(m repomanager.RepositoryManager, hasher *cryptox.Hasher, codec auth.Codec, log logging.Logger) *SessionService {
	return &SessionService{
		repomanager: m,
		hasher:      hasher,
		codec:       codec,
		policy:      DefaultPasswordPolicy,
		log:         log.With("module", "session"),
	}
}

// WithPasswordPolicy replaces DefaultPasswordPolicy for password changes.
func (s *SessionService) WithPasswordPolicy(p PasswordPolicy) *SessionService {
	s.policy = p
	return s
}

// Issue creates the session cookie for p.
func (s *SessionService) Issue(p *models.Principal) (*Session, error) {
	value, err := s.codec.Encode(p.Kind, p.ID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &Session{CookieName: CookieName(p.Kind), Value: value}, nil
}

// Resolve returns the principal behind the cookies, checking the admin
// cookie before the user cookie. A cookie that does not decode, or whose
// principal is gone, is skipped. With nothing left it returns
// common.ErrorUnauthorized.
func (s *SessionService) Resolve(ctx context.Context, cookies SessionCookies) (*models.Principal, error) {
	for _, kind := range models.Kinds {
		raw := cookies.value(kind)
		if raw == "" {
			continue
		}

		id, err := s.codec.Decode(kind, raw)
		if err != nil {
			s.log.Debug(ctx, "session cookie rejected", "kind", kind, "error", err)
			continue
		}

		p, err := s.repomanager.Principals().GetByID(ctx, kind, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorInvalidID) {
				s.log.Debug(ctx, "session principal not found", "kind", kind)
				continue
			}
			s.log.Error(ctx, "session lookup failed", "kind", kind, "error", err)
			return nil, common.ErrorInternal
		}
		return p, nil
	}
	return nil, common.ErrorUnauthorized
}

// Login verifies email and password and returns the matching principal.
// An email registered as both kinds resolves to whichever password matches,
// admin first.
func (s *SessionService) Login(ctx context.Context, email, password string) (*models.Principal, error) {
	email = common.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.ErrorValidation
	}

	found := false
	for _, kind := range models.Kinds {
		p, err := s.repomanager.Principals().GetByEmail(ctx, kind, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				continue
			}
			s.log.Error(ctx, "login lookup failed", "kind", kind, "error", err)
			return nil, common.ErrorInternal
		}
		found = true
		if s.hasher.Compare(p.PasswordHash, password) {
			s.log.Info(ctx, "login succeeded", "kind", kind, "email", common.MaskEmail(email))
			return p, nil
		}
	}

	if !found {
		s.hasher.CompareDummy(password)
	}
	s.log.Info(ctx, "login failed", "email", common.MaskEmail(email))
	return nil, common.ErrorUnauthorized
}

// ChangePassword replaces the password of an authenticated principal after
// checking the current one. It also clears MustChangePassword.
func (s *SessionService) ChangePassword(ctx context.Context, p *models.Principal, current, next string) error {
	if current == "" {
		return common.ErrorValidation
	}
	if err := s.policy.Validate(next); err != nil {
		return err
	}
	if !s.hasher.Compare(p.PasswordHash, current) {
		return common.ErrorUnauthorized
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return common.ErrorInternal
	}
	if err := s.repomanager.Principals().UpdatePassword(ctx, p.Kind, p.ID, hash); err != nil {
		s.log.Error(ctx, "password change failed", "kind", p.Kind, "error", err)
		return common.ErrorInternal
	}
	s.log.Info(ctx, "password changed", "kind", p.Kind, "email", common.MaskEmail(p.Email))
	return nil
}
