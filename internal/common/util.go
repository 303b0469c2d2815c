package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString generates size random bytes and returns them hex encoded,
// so the result is 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// TokenPrefix returns the loggable prefix of a secret token followed by "...".
// Tokens no longer than the prefix are masked entirely.
func TokenPrefix(token string) string {
	if len(token) <= tokenPrefixLen {
		return "..."
	}
	return token[:tokenPrefixLen] + "..."
}
