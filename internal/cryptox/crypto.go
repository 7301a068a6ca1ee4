// Package cryptox wraps the hashing primitives used for credentials:
// bcrypt for passwords and for password-reset tokens.
package cryptox

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// ResetTokenBytes is the amount of entropy in a raw reset token.
// Hex encoding doubles it to 64 characters, below bcrypt's 72 byte limit.
const ResetTokenBytes = 32

// ErrPasswordTooLong is returned for secrets bcrypt would silently truncate.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// Hasher hashes and verifies secrets with bcrypt at a fixed cost.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher returns a Hasher using cost, clamped into bcrypt's valid range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	// dummy keeps failed lookups roughly as slow as real comparisons.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("eduportal-dummy-secret"), cost)
	return &Hasher{cost: cost, dummy: dummy}
}

// Hash returns the bcrypt hash of secret.
func (h *Hasher) Hash(secret string) (string, error) {
	if len(secret) > 72 {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

// Compare reports whether secret matches hash. The comparison is
// constant-time with respect to secret.
func (h *Hasher) Compare(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// CompareDummy burns the same work as Compare against a fixed hash.
// Call it when the principal does not exist.
func (h *Hasher) CompareDummy(secret string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(secret))
}

// NewResetToken returns a fresh raw reset token and its bcrypt hash.
func (h *Hasher) NewResetToken() (raw string, hash string, err error) {
	raw, err = common.MakeRandHexString(ResetTokenBytes)
	if err != nil {
		return "", "", fmt.Errorf("random token: %w", err)
	}
	hash, err = h.Hash(raw)
	if err != nil {
		return "", "", err
	}
	return raw, hash, nil
}
