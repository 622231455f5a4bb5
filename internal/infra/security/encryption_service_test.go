//go:build !integration

package security

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestEncryptionService(t *testing.T) {
	svc, err := NewEncryptionService("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	a, err := svc.Encrypt("s-crd-1")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	b, _ := svc.Encrypt("s-crd-1")
	if a == b {
		t.Error("expected a fresh nonce per value")
	}
	if !strings.HasPrefix(a, "v1:") || strings.Contains(a, "s-crd-1") {
		t.Errorf("unexpected sealed value %q", a)
	}

	got, err := svc.Decrypt(a)
	if err != nil || got != "s-crd-1" {
		t.Fatalf("expected round trip, got (%q, %v)", got, err)
	}

	tampered := a[:len(a)-2] + "AA"
	if _, err := svc.Decrypt(tampered); !errors.Is(err, ErrCiphertext) {
		t.Errorf("expected ErrCiphertext for tampered value, got %v", err)
	}
	if _, err := svc.Decrypt("s-crd-1"); !errors.Is(err, ErrCiphertext) {
		t.Errorf("expected ErrCiphertext for plaintext, got %v", err)
	}
}

func TestNewEncryptionService_Keys(t *testing.T) {
	if _, err := NewEncryptionService(base64.StdEncoding.EncodeToString([]byte("0123456789abcdef"))); err != nil {
		t.Errorf("expected base64 key to be accepted: %v", err)
	}
	if _, err := NewEncryptionService("short"); err == nil {
		t.Error("expected short key to be rejected")
	}
}
