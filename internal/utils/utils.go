package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashEmail creates a consistent hash for logging without exposing PII.
// Emails are compared case-insensitively so the hash is too.
func HashEmail(email string) string {
	return hashPrefix(strings.ToLower(strings.TrimSpace(email)), 12)
}

// HashID hashes opaque identifiers (uids, form ids, session ids) for logs.
func HashID(id string) string {
	return hashPrefix(id, 8)
}

func hashPrefix(s string, n int) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:n]
}
