package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/edvin/commerce-messaging/internal/api/response"
	"github.com/edvin/commerce-messaging/internal/crypto"
)

// Auth returns a middleware that accepts requests whose API key hashes to one
// of keyHashes (hex SHA-256). The key is read from X-API-Key or from an
// Authorization bearer token. With no hashes configured every request passes.
func Auth(keyHashes []string) func(http.Handler) http.Handler {
	hashes := make([][]byte, 0, len(keyHashes))
	for _, h := range keyHashes {
		if b, err := hex.DecodeString(h); err == nil && len(b) == sha256.Size {
			hashes = append(hashes, b)
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keyHashes) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = extractAPIKey(r)
			}
			if key == "" {
				response.WriteError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			sum := sha256.Sum256([]byte(key))
			for _, h := range hashes {
				if subtle.ConstantTimeCompare(sum[:], h) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.WriteError(w, http.StatusUnauthorized, "invalid API key")
		})
	}
}

// HashAPIKey returns the hex SHA-256 digest accepted by Auth.
func HashAPIKey(key string) string {
	return crypto.KeyHash(key)
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
