package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// SHA256HashService implements ports.HashService.
//
// Private keys are 256 bits of CSPRNG output, so an unsalted digest is
// enough; the digest must be deterministic for hash-to-hash comparison.
type SHA256HashService struct{}

// NewSHA256HashService creates a new hash service.
func NewSHA256HashService() *SHA256HashService {
	return &SHA256HashService{}
}

// Hash returns the lowercase hex SHA-256 of secret.
func (s *SHA256HashService) Hash(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Equal compares two hex digests in constant time, ignoring case.
func (s *SHA256HashService) Equal(hash, stored string) bool {
	a := []byte(strings.ToLower(hash))
	b := []byte(strings.ToLower(stored))
	return subtle.ConstantTimeCompare(a, b) == 1
}
