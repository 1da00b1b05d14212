package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resolvedIP runs a request through the middleware and returns what
// downstream handlers see from ClientIP.
func resolvedIP(t *testing.T, m *ClientIPMiddleware, remoteAddr string, headers map[string]string) string {
	t.Helper()

	var got string
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIP(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestNewClientIPMiddleware(t *testing.T) {
	m, err := NewClientIPMiddleware("")
	require.NoError(t, err)
	assert.Empty(t, m.trusted)

	m, err = NewClientIPMiddleware(" 10.0.0.0/8 , 192.0.2.1,2001:db8::/32 ")
	require.NoError(t, err)
	assert.Len(t, m.trusted, 3)

	_, err = NewClientIPMiddleware("10.0.0.0/8,not-an-ip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-an-ip")

	_, err = NewClientIPMiddleware("10.0.0.0/99")
	require.Error(t, err)
}

func TestClientIPMiddleware(t *testing.T) {
	proxied, err := NewClientIPMiddleware("10.0.0.0/8")
	require.NoError(t, err)
	direct, err := NewClientIPMiddleware("")
	require.NoError(t, err)

	tests := []struct {
		name       string
		m          *ClientIPMiddleware
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "no trusted proxies ignores forwarded for",
			m:          direct,
			remoteAddr: "203.0.113.50:4444",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1"},
			want:       "203.0.113.50",
		},
		{
			name:       "untrusted peer cannot spoof forwarded for",
			m:          proxied,
			remoteAddr: "203.0.113.50:4444",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1"},
			want:       "203.0.113.50",
		},
		{
			name:       "untrusted peer cannot spoof real ip",
			m:          proxied,
			remoteAddr: "203.0.113.50:4444",
			headers:    map[string]string{"X-Real-IP": "198.51.100.1"},
			want:       "203.0.113.50",
		},
		{
			name:       "trusted proxy forwarded for",
			m:          proxied,
			remoteAddr: "10.0.0.1:4444",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1"},
			want:       "198.51.100.1",
		},
		{
			name:       "client prepended entries are skipped",
			m:          proxied,
			remoteAddr: "10.0.0.1:4444",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4, 198.51.100.1"},
			want:       "198.51.100.1",
		},
		{
			name:       "chained trusted proxies",
			m:          proxied,
			remoteAddr: "10.0.0.1:4444",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.7"},
			want:       "198.51.100.1",
		},
		{
			name:       "garbage hop stops the walk",
			m:          proxied,
			remoteAddr: "10.0.0.1:4444",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1, bogus"},
			want:       "10.0.0.1",
		},
		{
			name:       "trusted proxy real ip",
			m:          proxied,
			remoteAddr: "10.0.0.1:4444",
			headers:    map[string]string{"X-Real-IP": " 198.51.100.4 "},
			want:       "198.51.100.4",
		},
		{
			name:       "trusted proxy without headers",
			m:          proxied,
			remoteAddr: "10.0.0.1:4444",
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolvedIP(t, tt.m, tt.remoteAddr, tt.headers))
		})
	}
}

func TestRateLimit_ForwardedForRotationDoesNotBypass(t *testing.T) {
	clientIP, err := NewClientIPMiddleware("")
	require.NoError(t, err)
	rl, _ := newTestLimiter(2, 15*time.Minute)
	h := Stack(clientIP.Handler, NewRateLimitMiddleware(rl, discardLogger()).Limit)(okHandler())

	codes := make([]int, 0, 3)
	for _, spoofed := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		req := httptest.NewRequest(http.MethodPost, "/subscribe", nil)
		req.RemoteAddr = "203.0.113.9:4444"
		req.Header.Set("X-Forwarded-For", spoofed)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
