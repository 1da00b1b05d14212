package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name     string
		isSecure bool
		wantHSTS bool
	}{
		{name: "production", isSecure: true, wantHSTS: true},
		{name: "development", isSecure: false, wantHSTS: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewSecurityHeadersMiddleware(tt.isSecure).Handler(okHandler()).
				ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/subscribe/k6-performance", nil))

			h := rec.Header()
			assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
			assert.Equal(t, "strict-origin-when-cross-origin", h.Get("Referrer-Policy"))
			assert.Equal(t, tt.wantHSTS, h.Get("Strict-Transport-Security") != "")
			assert.Equal(t, "OK", rec.Body.String())
		})
	}
}

func TestBuildCSP(t *testing.T) {
	csp := buildCSP()

	assert.Contains(t, csp, "default-src 'self'")
	assert.Contains(t, csp, "form-action 'self'")
	assert.Contains(t, csp, "frame-ancestors 'none'")
	assert.Contains(t, csp, "connect-src 'self'")
	assert.NotContains(t, csp, "script-src 'self' 'unsafe-inline'")
}
