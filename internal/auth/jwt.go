// Package auth verifies the bearer tokens interview HTTP endpoints
// require, per spec.md §6. It implements the narrow
// [httpapi.Authenticator] interface so the HTTP layer never depends on a
// concrete token format.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any malformed, expired, or
// wrong-signature token, without distinguishing which — the HTTP layer
// maps every case to 401 regardless.
var ErrInvalidToken = errors.New("auth: invalid token")

// JWTVerifier validates HS256-signed bearer tokens against a shared
// signing secret and resolves the "sub" claim as the caller's user id.
type JWTVerifier struct {
	secret []byte
	clock  func() time.Time
}

// NewJWTVerifier creates a JWTVerifier bound to secret. secret must be
// non-empty; an empty signing secret means every token would validate
// against the zero key, which is never correct in production.
func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("auth: JWT signing secret must not be empty")
	}
	return &JWTVerifier{secret: []byte(secret), clock: time.Now}, nil
}

// Authenticate parses and validates token, returning the subject claim as
// the user id.
func (v *JWTVerifier) Authenticate(_ context.Context, token string) (string, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithTimeFunc(v.clock))
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject claim", ErrInvalidToken)
	}
	return claims.Subject, nil
}
