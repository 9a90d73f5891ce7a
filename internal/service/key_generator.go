package service

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/sha3"
)

// Ed25519KeyGenerator implements ports.KeyGenerator.
//
// The private key is privateKeySize random bytes. Its first 32 bytes seed an
// ed25519 key pair, and the address is the trailing addressSize bytes of the
// Keccak-256 digest of the public key.
type Ed25519KeyGenerator struct {
	privateKeySize int
	addressSize    int
	rand           io.Reader
}

// NewKeyGenerator creates a key generator. privateKeySize must be at least
// ed25519.SeedSize and addressSize at most 32.
func NewKeyGenerator(privateKeySize, addressSize int) *Ed25519KeyGenerator {
	return &Ed25519KeyGenerator{
		privateKeySize: privateKeySize,
		addressSize:    addressSize,
		rand:           rand.Reader,
	}
}

// Generate returns a fresh hex address ("0x"-prefixed) and hex private key.
func (g *Ed25519KeyGenerator) Generate() (string, string, error) {
	if g.privateKeySize < ed25519.SeedSize {
		return "", "", fmt.Errorf("private key size %d is below %d", g.privateKeySize, ed25519.SeedSize)
	}
	if g.addressSize <= 0 || g.addressSize > 32 {
		return "", "", fmt.Errorf("address size %d out of range", g.addressSize)
	}

	material := make([]byte, g.privateKeySize)
	if _, err := io.ReadFull(g.rand, material); err != nil {
		return "", "", fmt.Errorf("reading key material: %w", err)
	}

	return deriveAddress(material[:ed25519.SeedSize], g.addressSize), hex.EncodeToString(material), nil
}

func deriveAddress(seed []byte, size int) string {
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)

	h := sha3.NewLegacyKeccak256()
	h.Write(pub)
	digest := h.Sum(nil)

	return "0x" + hex.EncodeToString(digest[len(digest)-size:])
}
