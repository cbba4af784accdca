package efile_test

import (
	"testing"

	"github.com/warp/filing-engine/efile"
)

func TestHMACSigner_DeterministicSignature(t *testing.T) {
	signer, err := efile.NewHMACSigner("test-secret")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	payload := []byte("<Return/>")
	first, err := signer.Sign(payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	second, _ := signer.Sign(payload)
	if first != second {
		t.Error("signature must be deterministic for the same payload")
	}

	// hex HMAC-SHA256 is 64 characters
	if len(first) != 64 {
		t.Errorf("signature length: got %d", len(first))
	}

	if !signer.Verify(payload, first) {
		t.Error("signature must verify against its own payload")
	}
	if signer.Verify([]byte("<Return >"), first) {
		t.Error("tampered payload must not verify")
	}
}

func TestHMACSigner_SecretChangesSignature(t *testing.T) {
	a, _ := efile.NewHMACSigner("secret-a")
	b, _ := efile.NewHMACSigner("secret-b")

	payload := []byte("<Return/>")
	sigA, _ := a.Sign(payload)
	sigB, _ := b.Sign(payload)
	if sigA == sigB {
		t.Error("different secrets must produce different signatures")
	}
	if b.Verify(payload, sigA) {
		t.Error("signature from another secret must not verify")
	}
}

func TestHMACSigner_EmptySecretRejected(t *testing.T) {
	if _, err := efile.NewHMACSigner(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestHMACSigner_Algorithm(t *testing.T) {
	signer, _ := efile.NewHMACSigner("x")
	if got := signer.Algorithm(); got != "hmac-sha256" {
		t.Errorf("algorithm: got %s", got)
	}
}
