package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

func TestJWTCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	c := NewJWTCodec([]byte("super-secret"), time.Hour)

	tok, err := c.Encode(models.KindAdmin, "admin-123")
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	got, err := c.Decode(models.KindAdmin, tok)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got != "admin-123" {
		t.Fatalf("id mismatch: got %q want %q", got, "admin-123")
	}
}

func TestJWTCodec_NoTTLHasNoExpiry(t *testing.T) {
	t.Parallel()

	c := NewJWTCodec([]byte("k"), 0)
	tok, err := c.Encode(models.KindUser, "u1")
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	c.now = func() time.Time { return time.Now().Add(24 * 365 * time.Hour) }
	if _, err := c.Decode(models.KindUser, tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJWTCodec_Expired(t *testing.T) {
	t.Parallel()

	c := NewJWTCodec([]byte("secret"), time.Minute)
	tok, err := c.Encode(models.KindUser, "u1")
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = c.Decode(models.KindUser, tok)
	if !errors.Is(err, common.ErrorInvalidID) {
		t.Fatalf("expected common.ErrorInvalidID, got %v", err)
	}
}

func TestJWTCodec_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewJWTCodec([]byte("right-secret"), time.Hour).Encode(models.KindUser, "u2")
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	_, err = NewJWTCodec([]byte("wrong-secret"), time.Hour).Decode(models.KindUser, tok)
	if !errors.Is(err, common.ErrorInvalidID) {
		t.Fatalf("expected common.ErrorInvalidID, got %v", err)
	}
}

func TestJWTCodec_KindMismatch(t *testing.T) {
	t.Parallel()

	c := NewJWTCodec([]byte("k"), time.Hour)
	tok, err := c.Encode(models.KindUser, "u3")
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	// a user token replayed into admin_session must not resolve
	if _, err := c.Decode(models.KindAdmin, tok); !errors.Is(err, common.ErrorInvalidID) {
		t.Fatalf("expected common.ErrorInvalidID, got %v", err)
	}
}

func TestJWTCodec_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "a1"},
		Kind:             string(models.KindAdmin),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}

	c := NewJWTCodec([]byte("k"), time.Hour)
	if _, err := c.Decode(models.KindAdmin, tok); !errors.Is(err, common.ErrorInvalidID) {
		t.Fatalf("expected common.ErrorInvalidID, got %v", err)
	}
}

func TestJWTCodec_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := NewJWTCodec([]byte("k"), time.Hour).Decode(models.KindAdmin, "not.a.jwt")
	if !errors.Is(err, common.ErrorInvalidID) {
		t.Fatalf("expected common.ErrorInvalidID, got %v", err)
	}
}

func TestJWTCodec_EmptyID(t *testing.T) {
	t.Parallel()

	if _, err := NewJWTCodec([]byte("k"), time.Hour).Encode(models.KindAdmin, ""); !errors.Is(err, common.ErrorInvalidID) {
		t.Fatalf("expected common.ErrorInvalidID, got %v", err)
	}
}
