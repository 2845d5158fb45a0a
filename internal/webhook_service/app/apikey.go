package app

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// apiKeyBytes gives 256 bits of entropy per generated key.
const apiKeyBytes = 32

// GenerateAPIKey returns a new random API key in URL-safe base64.
func GenerateAPIKey() (string, error) {
	raw := make([]byte, apiKeyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashAPIKey returns the stored form of an API key: hex(SHA3-256(key)).
// Keys carry full 256-bit entropy, so an unsalted fast hash is sufficient
// and keeps verification constant-time.
func HashAPIKey(key string) string {
	sum := sha3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// VerifyAPIKey compares a presented key against a stored hash in constant
// time. Malformed stored hashes never verify.
func VerifyAPIKey(storedHash, presentedKey string) bool {
	stored, err := hex.DecodeString(storedHash)
	if err != nil || len(stored) != 32 {
		return false
	}
	presented := sha3.Sum256([]byte(presentedKey))
	return subtle.ConstantTimeCompare(stored, presented[:]) == 1
}
