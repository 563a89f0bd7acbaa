package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidVisitorToken signals a malformed or forged visitor cookie.
	ErrInvalidVisitorToken = errors.New("invalid visitor token")
	// ErrMissingSecret signals that no signing secret is configured.
	ErrMissingSecret = errors.New("visitor secret is not configured")
)

// VisitorSigner mints and validates HMAC-signed visitor IDs carried in a
// long-lived cookie; the ID is the stable visitor dimension in click
// analytics. Signing keeps clients from choosing arbitrary IDs.
type VisitorSigner struct {
	secret []byte
}

// NewVisitorSigner returns a signer using the given secret.
func NewVisitorSigner(secret []byte) *VisitorSigner {
	return &VisitorSigner{secret: secret}
}

// Issue mints a fresh visitor ID and its signed cookie value.
func (s *VisitorSigner) Issue() (id, token string, err error) {
	if len(s.secret) == 0 {
		return "", "", ErrMissingSecret
	}

	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}

	id = hex.EncodeToString(raw)
	sig := s.sign(id)
	token = fmt.Sprintf("%s.%s", id, base64.RawURLEncoding.EncodeToString(sig[:16]))
	return id, token, nil
}

// Validate checks a cookie value and returns the embedded visitor ID.
func (s *VisitorSigner) Validate(token string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", ErrInvalidVisitorToken
	}

	sigProvided, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil || len(sigProvided) != 16 {
		return "", ErrInvalidVisitorToken
	}

	expected := s.sign(parts[0])
	if !hmac.Equal(sigProvided, expected[:16]) {
		return "", ErrInvalidVisitorToken
	}
	return parts[0], nil
}

func (s *VisitorSigner) sign(id string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte("visitor|"))
	mac.Write([]byte(id))
	return mac.Sum(nil)
}

// FallbackVisitorID derives a stable pseudo-ID from IP and user agent for
// clients that refuse cookies.
func FallbackVisitorID(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + "|" + userAgent))
	return hex.EncodeToString(sum[:16])
}
