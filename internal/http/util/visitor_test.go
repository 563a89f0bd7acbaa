package util

import (
	"errors"
	"testing"
)

func TestVisitorSigner_Roundtrip(t *testing.T) {
	signer := NewVisitorSigner([]byte("test-secret"))

	id, token, err := signer.Issue()
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if id == "" || token == "" {
		t.Fatal("expected non-empty id and token")
	}

	got, err := signer.Validate(token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if got != id {
		t.Fatalf("expected id %q, got %q", id, got)
	}
}

func TestVisitorSigner_RejectsTampering(t *testing.T) {
	signer := NewVisitorSigner([]byte("test-secret"))
	_, token, err := signer.Issue()
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// Flip the leading ID byte relative to its current value so the token
	// always differs from the issued one.
	flipped := byte('0')
	if token[0] == '0' {
		flipped = '1'
	}
	tampered := string(flipped) + token[1:]
	if _, err := signer.Validate(tampered); !errors.Is(err, ErrInvalidVisitorToken) {
		t.Fatalf("expected ErrInvalidVisitorToken, got %v", err)
	}
	if _, err := signer.Validate("garbage"); !errors.Is(err, ErrInvalidVisitorToken) {
		t.Fatalf("expected ErrInvalidVisitorToken, got %v", err)
	}
}

func TestVisitorSigner_MissingSecret(t *testing.T) {
	signer := NewVisitorSigner(nil)
	if _, _, err := signer.Issue(); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}

func TestFallbackVisitorID_Stable(t *testing.T) {
	a := FallbackVisitorID("1.2.3.4", "agent")
	b := FallbackVisitorID("1.2.3.4", "agent")
	c := FallbackVisitorID("1.2.3.5", "agent")
	if a != b {
		t.Fatal("fallback id must be deterministic")
	}
	if a == c {
		t.Fatal("different inputs must yield different ids")
	}
}
