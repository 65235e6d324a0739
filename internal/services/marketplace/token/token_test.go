package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
)

var testSecret = []byte(strings.Repeat("s", MinSecretBytes))

func newTestManager(t *testing.T, now func() time.Time) *Manager {
	t.Helper()
	m, err := NewManager(Config{Secret: testSecret, TTL: time.Hour, Now: now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewManager(Config{Secret: []byte("short")}); err == nil {
		t.Fatal("expected short secret error")
	}
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, func() time.Time { return now })

	raw, expiresAt, err := m.Issue("user-1", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expires at = %v", expiresAt)
	}
	claims, err := m.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "admin" {
		t.Fatalf("claims = %+v", claims)
	}
	if !claims.IssuedAt.Equal(now) {
		t.Fatalf("issued at = %v", claims.IssuedAt)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestManager(t, func() time.Time { return now })
	raw, _, err := issuer.Issue("user-1", "user")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	later := newTestManager(t, func() time.Time { return now.Add(2 * time.Hour) })
	_, err = later.Verify(raw)
	if apperrors.CodeOf(err) != apperrors.CodeAuthTokenInvalid {
		t.Fatalf("expected invalid token code, got %v", err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	m := newTestManager(t, nil)
	other, err := NewManager(Config{Secret: []byte(strings.Repeat("x", MinSecretBytes))})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	raw, _, err := other.Issue("user-1", "user")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(raw); apperrors.CodeOf(err) != apperrors.CodeAuthTokenInvalid {
		t.Fatalf("expected invalid token code, got %v", err)
	}
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	m := newTestManager(t, nil)
	other, err := NewManager(Config{Secret: testSecret, Audience: "someone-else"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	raw, _, err := other.Issue("user-1", "user")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(raw); err == nil {
		t.Fatal("expected audience mismatch error")
	}
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	m := newTestManager(t, nil)
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    DefaultIssuer,
		Audience:  jwt.ClaimStrings{DefaultAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := m.Verify(raw); err == nil {
		t.Fatal("expected none algorithm to be rejected")
	}
}

func TestVerifyEmptyTokenRequiresAuth(t *testing.T) {
	m := newTestManager(t, nil)
	if _, err := m.Verify("  "); apperrors.CodeOf(err) != apperrors.CodeAuthRequired {
		t.Fatalf("expected auth required, got %v", err)
	}
}
