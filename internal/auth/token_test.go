package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueAndParseClientToken(t *testing.T) {
	secret := []byte("secret")
	now := time.Now()
	issued, err := NewClientToken(secret, "cl_1", now, time.Hour)
	if err != nil {
		t.Fatalf("NewClientToken() error = %v", err)
	}
	claims, err := ParseClientToken(secret, issued, now)
	if err != nil {
		t.Fatalf("ParseClientToken() error = %v", err)
	}
	if claims.ClientID != "cl_1" || claims.IssuedAt != now.Unix() {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseClientTokenRejectsExpired(t *testing.T) {
	secret := []byte("secret")
	now := time.Now()
	issued, err := NewClientToken(secret, "cl_1", now.Add(-2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("NewClientToken() error = %v", err)
	}
	if _, err := ParseClientToken(secret, issued, now); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("ParseClientToken() error = %v, want ErrExpiredToken", err)
	}
}

func TestParseClientTokenRejectsTampering(t *testing.T) {
	secret := []byte("secret")
	now := time.Now()
	issued, err := NewClientToken(secret, "cl_1", now, time.Hour)
	if err != nil {
		t.Fatalf("NewClientToken() error = %v", err)
	}
	forged, err := NewClientToken([]byte("other"), "cl_1", now, time.Hour)
	if err != nil {
		t.Fatalf("NewClientToken() error = %v", err)
	}
	payload, _, _ := strings.Cut(issued, ".")
	_, forgedSig, _ := strings.Cut(forged, ".")

	for _, token := range []string{"", "abc", issued + ".x", payload + "." + forgedSig, "!!." + forgedSig} {
		if _, err := ParseClientToken(secret, token, now); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("ParseClientToken(%q) error = %v, want ErrInvalidToken", token, err)
		}
	}
}
