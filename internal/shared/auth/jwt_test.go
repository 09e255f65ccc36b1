package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignAndVerify(t *testing.T) {
	v, err := NewVerifier("test-secret", "dev")
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	token, err := v.Sign("sub-1", Claims{Email: "a@example.com"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "sub-1" || claims.Email != "a@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	signer, _ := NewVerifier("one", "dev")
	verifier, _ := NewVerifier("two", "dev")
	token, err := signer.Sign("sub-1", Claims{})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	v, _ := NewVerifier("test-secret", "dev")
	past := time.Now().Add(-time.Hour)
	token, err := v.Sign("sub-1", Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(past),
	}})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNewVerifierRequiresSecretInProduction(t *testing.T) {
	if _, err := NewVerifier("", "production"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	if _, err := NewVerifier("", "dev"); err != nil {
		t.Fatalf("expected dev fallback, got %v", err)
	}
}
