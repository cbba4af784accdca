/*
signer.go - Payload integrity signature

PURPOSE:
  Computes a tamper/liveness signature over the serialized return. This is
  NOT a legal e-signature: real e-filing requires certificate-based signing
  per the authority's specification. The Signer interface keeps that step
  pluggable; HMACSigner is the shared-secret placeholder in use today.

SEE ALSO:
  - wire.go: The canonical bytes being signed
  - gateway.go: Sends the signature out-of-band in the envelope
*/
package efile

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// =============================================================================
// SIGNER - Pluggable signature step
// =============================================================================

// Signer signs serialized return payloads.
type Signer interface {
	// Sign returns the signature for the payload bytes.
	Sign(payload []byte) (string, error)

	// Algorithm names the scheme for the envelope (e.g. "hmac-sha256").
	Algorithm() string
}

// =============================================================================
// HMAC SIGNER - Shared-secret implementation
// =============================================================================

// HMACSigner computes hex HMAC-SHA256 over the payload with a shared secret.
type HMACSigner struct {
	secret []byte
}

var _ Signer = (*HMACSigner)(nil)

// NewHMACSigner returns a signer for the shared secret.
func NewHMACSigner(secret string) (*HMACSigner, error) {
	if secret == "" {
		return nil, errors.New("signing secret must not be empty")
	}
	return &HMACSigner{secret: []byte(secret)}, nil
}

func (s *HMACSigner) Sign(payload []byte) (string, error) {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func (s *HMACSigner) Algorithm() string { return "hmac-sha256" }

// Verify reports whether sig matches the payload. Constant-time.
func (s *HMACSigner) Verify(payload []byte, sig string) bool {
	expected, err := s.Sign(payload)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(sig))
}
