package crypto

import (
	"crypto/sha256"
	"fmt"
)

// KeyHash computes the SHA-256 hex digest under which API keys are
// configured.
func KeyHash(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return fmt.Sprintf("%x", h)
}
