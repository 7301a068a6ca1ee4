// Package auth encodes principal ids into session cookie values and back.
package auth

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/server/models"
)

// Codec turns a principal id into a cookie value and back. Decode failures
// wrap common.ErrorInvalidID so callers treat them like a malformed id.
type Codec interface {
	Encode(kind models.Kind, id string) (string, error)
	Decode(kind models.Kind, value string) (string, error)
}

// PlainCodec stores the raw principal id in the cookie.
type PlainCodec struct{}

func (PlainCodec) Encode(_ models.Kind, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty id", common.ErrorInvalidID)
	}
	return id, nil
}

func (PlainCodec) Decode(_ models.Kind, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: empty cookie", common.ErrorInvalidID)
	}
	return value, nil
}
