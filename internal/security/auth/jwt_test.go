package auth

import (
	"testing"
	"time"

	"github.com/Tiisu/eco-action-hub/internal/domain"
)

func TestGenerateAndValidateToken(t *testing.T) {
	tm := NewTokenManager("secret", "test", time.Hour)

	profile := &domain.Profile{
		ID:       "p-1",
		Email:    "agent@example.com",
		Role:     domain.RoleAgent,
		Approved: true,
	}

	token, err := tm.GenerateToken(profile)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := tm.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "p-1" {
		t.Errorf("expected user p-1, got %q", claims.UserID)
	}
	if claims.Role != domain.RoleAgent {
		t.Errorf("expected agent role, got %q", claims.Role)
	}
	if !claims.Approved {
		t.Error("expected approved claim")
	}
	if claims.Issuer != "test" {
		t.Errorf("expected issuer test, got %q", claims.Issuer)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	tm := NewTokenManager("secret-a", "test", time.Hour)
	other := NewTokenManager("secret-b", "test", time.Hour)

	token, err := tm.GenerateToken(&domain.Profile{ID: "p-1", Role: domain.RoleUser})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := other.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret must not validate")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	tm := NewTokenManager("secret", "test", time.Millisecond)

	token, err := tm.GenerateToken(&domain.Profile{ID: "p-1", Role: domain.RoleUser})
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)
	if _, err := tm.ValidateToken(token); err == nil {
		t.Error("expired token must not validate")
	}
}

func TestGenerateTokenRequiresProfile(t *testing.T) {
	tm := NewTokenManager("secret", "test", time.Hour)

	if _, err := tm.GenerateToken(nil); err == nil {
		t.Error("nil profile must fail")
	}
	if _, err := tm.GenerateToken(&domain.Profile{}); err == nil {
		t.Error("profile without ID must fail")
	}
}

func TestExtractToken(t *testing.T) {
	if tok, err := ExtractToken("Bearer abc123"); err != nil || tok != "abc123" {
		t.Errorf("expected abc123, got %q (%v)", tok, err)
	}
	for _, header := range []string{"", "abc123", "Basic abc123", "Bearer a b"} {
		if _, err := ExtractToken(header); err == nil {
			t.Errorf("header %q should be rejected", header)
		}
	}
}
