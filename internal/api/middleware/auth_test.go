package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_Disabled(t *testing.T) {
	handler := Auth(nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/workflows/order-confirmation", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_MissingKey(t *testing.T) {
	handler := Auth([]string{HashAPIKey("msg_secret")})(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/workflows/order-confirmation", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "missing API key", body["error"])
	assert.Equal(t, false, body["success"])
}

func TestAuth_ValidHeaderKey(t *testing.T) {
	handler := Auth([]string{HashAPIKey("other"), HashAPIKey("msg_secret")})(okHandler())

	req := httptest.NewRequest("POST", "/workflows/order-confirmation", nil)
	req.Header.Set("X-API-Key", "msg_secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_ValidBearerKey(t *testing.T) {
	handler := Auth([]string{HashAPIKey("msg_secret")})(okHandler())

	req := httptest.NewRequest("GET", "/workflows/order-confirmation-O-1", nil)
	req.Header.Set("Authorization", "Bearer msg_secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_InvalidKey(t *testing.T) {
	handler := Auth([]string{HashAPIKey("msg_secret")})(okHandler())

	req := httptest.NewRequest("GET", "/workflows/order-confirmation-O-1", nil)
	req.Header.Set("X-API-Key", "msg_wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"bearer token", "Bearer msg_abc123", "msg_abc123"},
		{"empty", "", ""},
		{"no prefix", "msg_abc123", ""},
		{"basic auth ignored", "Basic dXNlcjpwYXNz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, extractAPIKey(req))
		})
	}
}
