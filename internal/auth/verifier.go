package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"coursechat/pkg/types"
)

// Verifier validates HMAC-SHA256 signed tokens issued by the wider platform.
// It holds no connection or room state; Verify is a pure function of the
// token, the shared secret, and the clock.
type Verifier struct {
	secret []byte
	opts   []jwt.ParserOption
}

// NewVerifier creates a verifier for the given shared secret. A non-empty
// issuer is matched against the token's iss claim.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	v := &Verifier{secret: []byte(secret)}
	if issuer != "" {
		v.opts = append(v.opts, jwt.WithIssuer(issuer))
	}
	return v, nil
}

// Verify parses and validates a token and returns its claims. The subject
// claim carries the user ID and must be present and well formed.
func (v *Verifier) Verify(tokenString string) (*types.Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, v.opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenInvalid
		}
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if !types.IsValidID(claims.Subject) {
		return nil, ErrTokenInvalid
	}

	out := &types.Claims{UserID: claims.Subject}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
