package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders_Always(t *testing.T) {
	handler := SecurityHeaders(SecurityHeadersConfig{})(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "no-referrer"},
		{"Cache-Control", "no-store"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, w.Header().Get(tt.header), tt.header)
	}
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		setup      func(r *http.Request)
		want       bool
	}{
		{"production behind https proxy", true, func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https") }, true},
		{"production direct tls", true, func(r *http.Request) { r.TLS = &tls.ConnectionState{} }, true},
		{"production plain http", true, func(r *http.Request) {}, false},
		{"development https", false, func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := SecurityHeaders(SecurityHeadersConfig{Production: tt.production})(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if tt.want {
				assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=")
			} else {
				assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
			}
		})
	}
}
