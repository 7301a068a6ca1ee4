package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the principal id as subject and the cookie kind it was
// issued for.
type Claims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
}

// JWTCodec signs cookie values as HS256 tokens. A zero ttl issues tokens
// without an expiry, matching a browser-session cookie.
type JWTCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTCodec(secret []byte, ttl time.Duration) *JWTCodec {
	return &JWTCodec{secret: secret, ttl: ttl, now: time.Now}
}

func (c *JWTCodec) Encode(kind models.Kind, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty id", common.ErrorInvalidID)
	}

	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  id,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Kind: string(kind),
	}
	if c.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func (c *JWTCodec) Decode(kind models.Kind, value string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInvalidID, err)
	}
	if !token.Valid {
		return "", fmt.Errorf("%w: invalid token", common.ErrorInvalidID)
	}
	if claims.Kind != string(kind) {
		return "", fmt.Errorf("%w: token issued for %q", common.ErrorInvalidID, claims.Kind)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", common.ErrorInvalidID)
	}

	return claims.Subject, nil
}
