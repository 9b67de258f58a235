// Package keygen generates and checks the format of issued API keys.
package keygen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Key format: UWUNTU-API-{16 uppercase hex}
// Example: UWUNTU-API-4F8D2E1B9C7A5F3D
const (
	Prefix      = "UWUNTU-API-"
	secretBytes = 8
)

var keyFormatRegex = regexp.MustCompile(`^UWUNTU-API-[A-F0-9]{16}$`)

// Generate returns a new random key. Nothing is persisted and uniqueness
// against stored keys is left to the store's unique constraint.
func Generate() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return Prefix + strings.ToUpper(hex.EncodeToString(b)), nil
}

// ValidFormat reports whether key matches the issued key format exactly.
// Lowercase hex is rejected.
func ValidFormat(key string) bool {
	return keyFormatRegex.MatchString(key)
}
