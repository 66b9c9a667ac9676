package security

import (
	"testing"
	"time"
)

func newTestProvider(ttl time.Duration) *TokenProvider {
	return NewTokenProvider([]byte("test-secret"), "test-issuer", "test-audience", ttl)
}

func TestTokenProvider_IssueAndValidateAccess(t *testing.T) {
	p := newTestProvider(time.Hour)

	token, expiresAt, err := p.IssueAccess("session-1", "user-1", "a@b.com")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if token == "" {
		t.Fatal("IssueAccess returned empty token")
	}
	if until := time.Until(expiresAt); until < 59*time.Minute || until > time.Hour {
		t.Errorf("expiresAt not ~1h out: %v", until)
	}

	sessionID, userID, email, err := p.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if sessionID != "session-1" {
		t.Errorf("sessionID = %q, want %q", sessionID, "session-1")
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want %q", userID, "user-1")
	}
	if email != "a@b.com" {
		t.Errorf("email = %q, want %q", email, "a@b.com")
	}
}

func TestTokenProvider_ValidateAccess_Expired(t *testing.T) {
	p := newTestProvider(-time.Minute)

	token, _, err := p.IssueAccess("session-1", "user-1", "a@b.com")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, _, _, err := p.ValidateAccess(token); err != ErrInvalidToken {
		t.Fatalf("ValidateAccess on expired token: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_ValidateAccess_WrongSecret(t *testing.T) {
	p := newTestProvider(time.Hour)
	other := NewTokenProvider([]byte("other-secret"), "test-issuer", "test-audience", time.Hour)

	token, _, err := p.IssueAccess("session-1", "user-1", "a@b.com")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, _, _, err := other.ValidateAccess(token); err != ErrInvalidToken {
		t.Fatalf("ValidateAccess with wrong secret: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_ValidateAccess_WrongIssuerAudience(t *testing.T) {
	p := newTestProvider(time.Hour)
	token, _, err := p.IssueAccess("session-1", "user-1", "a@b.com")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	otherIssuer := NewTokenProvider([]byte("test-secret"), "another-issuer", "test-audience", time.Hour)
	if _, _, _, err := otherIssuer.ValidateAccess(token); err != ErrInvalidToken {
		t.Fatalf("ValidateAccess with wrong issuer: got %v, want ErrInvalidToken", err)
	}

	otherAudience := NewTokenProvider([]byte("test-secret"), "test-issuer", "another-audience", time.Hour)
	if _, _, _, err := otherAudience.ValidateAccess(token); err != ErrInvalidToken {
		t.Fatalf("ValidateAccess with wrong audience: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenProvider_ValidateAccess_Garbage(t *testing.T) {
	p := newTestProvider(time.Hour)
	for _, tok := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		if _, _, _, err := p.ValidateAccess(tok); err != ErrInvalidToken {
			t.Errorf("ValidateAccess(%q): got %v, want ErrInvalidToken", tok, err)
		}
	}
}
