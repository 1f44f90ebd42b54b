package filterkey

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// keyBytes is the amount of randomness in a filter key (128 bits).
const keyBytes = 16

// NewKey returns a fresh random filter key as lowercase hex.
func NewKey() (string, error) {
	b := make([]byte, keyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate filter key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ValidKey reports whether s has the shape of a key produced by NewKey.
func ValidKey(s string) bool {
	if len(s) != keyBytes*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
