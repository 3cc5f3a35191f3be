// Package service provides cryptographic helpers for the audit trail.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	auditDomain "github.com/allisson/accessgate/internal/audit/domain"
)

// Signer produces and checks tamper-evidence signatures for audit records.
type Signer interface {
	Sign(log *auditDomain.AuditLog) ([]byte, error)
	Verify(log *auditDomain.AuditLog) error
}

type hmacSigner struct {
	signingKey []byte
}

// NewSigner derives an HMAC-SHA256 signing key from the configured secret with HKDF-SHA256.
func NewSigner(secret []byte) (Signer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("audit signing secret is empty")
	}

	reader := hkdf.New(sha256.New, secret, nil, []byte("audit-log-signing-v1"))
	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(reader, signingKey); err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}

	return &hmacSigner{signingKey: signingKey}, nil
}

// canonicalize converts the record to the byte sequence covered by the signature.
// Variable-length fields are length-prefixed so field boundaries stay unambiguous.
func canonicalize(log *auditDomain.AuditLog) ([]byte, error) {
	buf := make([]byte, 0, 512)

	buf = append(buf, log.ID[:]...)
	buf = append(buf, log.ActorID[:]...)
	buf = appendLengthPrefixed(buf, []byte(log.RequestID))
	buf = appendLengthPrefixed(buf, []byte(log.Action))
	buf = appendLengthPrefixed(buf, []byte(log.ResourceType))
	buf = appendLengthPrefixed(buf, []byte(log.ResourceID))
	buf = appendLengthPrefixed(buf, []byte(log.Outcome))
	buf = appendLengthPrefixed(buf, []byte(log.Engine))
	buf = appendLengthPrefixed(buf, []byte(log.Reason))
	buf = appendLengthPrefixed(buf, []byte(log.Label))

	if log.Metadata != nil {
		// encoding/json sorts map keys, which keeps the encoding deterministic
		metadataBytes, err := json.Marshal(log.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		buf = appendLengthPrefixed(buf, metadataBytes)
	} else {
		buf = appendLengthPrefixed(buf, nil)
	}

	timeBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(timeBytes, uint64(log.CreatedAt.UnixNano()))
	buf = append(buf, timeBytes...)

	return buf, nil
}

func appendLengthPrefixed(buf []byte, data []byte) []byte {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	buf = append(buf, length...)
	return append(buf, data...)
}

// Sign returns the 32-byte HMAC-SHA256 of the canonical record.
func (s *hmacSigner) Sign(log *auditDomain.AuditLog) ([]byte, error) {
	canonical, err := canonicalize(log)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize log: %w", err)
	}

	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write(canonical)
	return mac.Sum(nil), nil
}

// Verify returns ErrSignatureInvalid when the stored signature does not match.
func (s *hmacSigner) Verify(log *auditDomain.AuditLog) error {
	expected, err := s.Sign(log)
	if err != nil {
		return fmt.Errorf("failed to compute expected signature: %w", err)
	}

	if !hmac.Equal(log.Signature, expected) {
		return auditDomain.ErrSignatureInvalid
	}

	return nil
}
