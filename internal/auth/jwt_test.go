package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestAuthenticate_ValidTokenReturnsSubject(t *testing.T) {
	v, err := NewJWTVerifier("secret")
	if err != nil {
		t.Fatalf("NewJWTVerifier: %v", err)
	}
	token := sign(t, "secret", jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	userID, err := v.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("got %q, want user-1", userID)
	}
}

func TestAuthenticate_WrongSecretIsRejected(t *testing.T) {
	v, _ := NewJWTVerifier("secret")
	token := sign(t, "wrong-secret", jwt.RegisteredClaims{Subject: "user-1"})

	if _, err := v.Authenticate(context.Background(), token); err == nil {
		t.Fatal("expected an error for a mismatched signing secret")
	}
}

func TestAuthenticate_ExpiredTokenIsRejected(t *testing.T) {
	v, _ := NewJWTVerifier("secret")
	token := sign(t, "secret", jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})

	if _, err := v.Authenticate(context.Background(), token); err == nil {
		t.Fatal("expected an error for an expired token")
	}
}

func TestAuthenticate_MissingSubjectIsRejected(t *testing.T) {
	v, _ := NewJWTVerifier("secret")
	token := sign(t, "secret", jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	if _, err := v.Authenticate(context.Background(), token); err == nil {
		t.Fatal("expected an error for a token with no subject claim")
	}
}

func TestNewJWTVerifier_RejectsEmptySecret(t *testing.T) {
	if _, err := NewJWTVerifier(""); err == nil {
		t.Fatal("expected an error for an empty signing secret")
	}
}
