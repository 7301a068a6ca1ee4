// Package models defines server-side data models persisted in the credential store.
package models

import (
	"fmt"
	"time"
)

// Kind separates the two disjoint principal populations. Identity is scoped
// by kind: the same id or email may exist once per kind.
type Kind string

const (
	KindAdmin Kind = "admin"
	KindUser  Kind = "user"
)

// Kinds lists principal kinds in session precedence order.
var Kinds = []Kind{KindAdmin, KindUser}

// ParseKind validates a textual kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAdmin, KindUser:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown principal kind %q", s)
	}
}

// DefaultRole is assigned when a principal is created without a role.
func (k Kind) DefaultRole() string {
	if k == KindAdmin {
		return "admin"
	}
	return "user"
}

// Principal is an admin or a site user able to authenticate.
type Principal struct {
	ID                 string
	Kind               Kind
	Email              string
	PasswordHash       string
	Name               string
	Role               string
	MustChangePassword bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
