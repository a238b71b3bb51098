package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, issuer string, expiresIn time.Duration) string {
	t.Helper()

	claims := jwt.MapClaims{
		"iss": issuer,
		"exp": time.Now().Add(expiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestValidateToken(t *testing.T) {
	v := NewJWTValidator(testSecret, "angel-admin")

	tokenString := signToken(t, testSecret, "angel-admin", time.Hour)
	claims, err := v.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("ValidateToken() failed: %v", err)
	}
	if claims["iss"] != "angel-admin" {
		t.Fatalf("unexpected issuer claim: %v", claims["iss"])
	}

	if _, err := v.ValidateToken(signToken(t, "wrong-secret", "angel-admin", time.Hour)); err == nil {
		t.Fatal("expected error for wrong secret")
	}
	if _, err := v.ValidateToken(signToken(t, testSecret, "someone-else", time.Hour)); err == nil {
		t.Fatal("expected error for wrong issuer")
	}
	if _, err := v.ValidateToken(signToken(t, testSecret, "angel-admin", -time.Hour)); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	v := NewJWTValidator(testSecret, "")
	handler := v.Middleware(next)

	req := httptest.NewRequest(http.MethodGet, "/diagnostics/reconcile/1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/diagnostics/reconcile/1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "", time.Hour))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}
}

func TestMiddlewareUnconfigured(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := NewJWTValidator("", "").Middleware(next)

	req := httptest.NewRequest(http.MethodGet, "/diagnostics/reconcile/1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through when unconfigured, got %d", rec.Code)
	}
}
