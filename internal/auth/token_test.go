package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "token-test-secret"

func TestVerifyRoundTrip(t *testing.T) {
	tok, err := GenerateToken("user-1", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	got, err := NewVerifier(testSecret).Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != "user-1" {
		t.Fatalf("got user %q, want user-1", got)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok, err := GenerateToken("user-1", "some-other-secret", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := NewVerifier(testSecret).Verify(tok); err != ErrInvalidToken {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	tok, err := GenerateToken("user-1", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := NewVerifier(testSecret).Verify(tok); err != ErrInvalidToken {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestVerifyEmptyTokenIsAuthRequired(t *testing.T) {
	if _, err := NewVerifier(testSecret).Verify(""); err != ErrAuthRequired {
		t.Fatalf("got %v, want ErrAuthRequired", err)
	}
}

func TestVerifyAcceptsLegacyUserIDClaim(t *testing.T) {
	claims := jwt.MapClaims{
		"userID": "legacy-7",
		"exp":    time.Now().Add(time.Minute).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := NewVerifier(testSecret).Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != "legacy-7" {
		t.Fatalf("got user %q, want legacy-7", got)
	}
}

func TestVerifyRejectsTokenWithoutSubject(t *testing.T) {
	claims := jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewVerifier(testSecret).Verify(tok); err != ErrInvalidToken {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer abc")
	if got := ExtractToken(r); got != "abc" {
		t.Fatalf("bearer header: got %q, want abc", got)
	}

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "raw-token")
	if got := ExtractToken(r); got != "raw-token" {
		t.Fatalf("raw header: got %q, want raw-token", got)
	}

	r = httptest.NewRequest("GET", "/ws?token=query-token", nil)
	if got := ExtractToken(r); got != "query-token" {
		t.Fatalf("query: got %q, want query-token", got)
	}

	// header takes precedence over the query parameter
	r = httptest.NewRequest("GET", "/ws?token=query-token", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	if got := ExtractToken(r); got != "header-token" {
		t.Fatalf("precedence: got %q, want header-token", got)
	}

	r = httptest.NewRequest("GET", "/ws", nil)
	if got := ExtractToken(r); got != "" {
		t.Fatalf("none: got %q, want empty", got)
	}
}
