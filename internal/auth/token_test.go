package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"expensetracker/internal/core"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGenerateToken(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 500, time.UTC)
	manager := NewTokenManager("test-secret-key", 24*time.Hour, fixedClock(now))

	token, expiresAt, err := manager.Generate("user-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Error("expected non-empty token")
	}
	if want := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC); !expiresAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, expiresAt)
	}
}

func TestGenerateToken_EmptyUser(t *testing.T) {
	manager := NewTokenManager("test-secret-key", time.Hour, nil)

	if _, _, err := manager.Generate(""); err == nil {
		t.Error("expected error for empty user id")
	}
}

func TestValidateToken_Valid(t *testing.T) {
	manager := NewTokenManager("test-secret-key", time.Hour, nil)

	token, _, err := manager.Generate("user-123")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("unexpected error validating token: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("expected UserID 'user-123', got '%s'", claims.UserID)
	}
	if claims.Subject != "user-123" {
		t.Errorf("expected Subject 'user-123', got '%s'", claims.Subject)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	issued := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	issuer := NewTokenManager("test-secret-key", time.Hour, fixedClock(issued))
	later := NewTokenManager("test-secret-key", time.Hour, fixedClock(issued.Add(2*time.Hour)))

	token, _, err := issuer.Generate("user-123")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := later.Validate(token); !errors.Is(err, core.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestValidateToken_InvalidSignature(t *testing.T) {
	manager1 := NewTokenManager("secret-key-1", time.Hour, nil)
	manager2 := NewTokenManager("secret-key-2", time.Hour, nil)

	token, _, err := manager1.Generate("user-123")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := manager2.Validate(token); !errors.Is(err, core.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong signature, got %v", err)
	}
}

func TestValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	manager := NewTokenManager("test-secret-key", time.Hour, nil)
	claims := &Claims{
		UserID: "user-123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret-key"))
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	if _, err := manager.Validate(hs512); !errors.Is(err, core.ErrInvalidToken) {
		t.Errorf("expected HS512 token to be rejected, got %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	if _, err := manager.Validate(none); !errors.Is(err, core.ErrInvalidToken) {
		t.Errorf("expected unsigned token to be rejected, got %v", err)
	}
}

func TestValidateToken_RequiresExpiry(t *testing.T) {
	manager := NewTokenManager("test-secret-key", time.Hour, nil)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "user-123"}).
		SignedString([]byte("test-secret-key"))
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	if _, err := manager.Validate(token); !errors.Is(err, core.ErrInvalidToken) {
		t.Errorf("expected token without exp to be rejected, got %v", err)
	}
}

func TestValidateToken_Malformed(t *testing.T) {
	manager := NewTokenManager("test-secret-key", time.Hour, nil)

	for _, token := range []string{"", "not-a-valid-token", "a.b.c"} {
		if _, err := manager.Validate(token); !errors.Is(err, core.ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken for %q, got %v", token, err)
		}
	}
}
