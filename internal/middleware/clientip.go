package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

type clientIPKey struct{}

// ClientIPMiddleware resolves the client address once per request.
//
// Proxy headers (X-Forwarded-For, X-Real-IP) are only believed when the
// direct peer is in the trusted list. X-Forwarded-For is walked right to
// left and the first hop that is not itself a trusted proxy wins, so a
// client cannot choose its own address by prepending entries.
type ClientIPMiddleware struct {
	trusted []netip.Prefix
}

// NewClientIPMiddleware parses a comma-separated list of proxy addresses or
// CIDR ranges. An empty list trusts no proxy and every request is keyed by
// its RemoteAddr.
func NewClientIPMiddleware(trustedProxies string) (*ClientIPMiddleware, error) {
	m := &ClientIPMiddleware{}
	for _, entry := range strings.Split(trustedProxies, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			m.trusted = append(m.trusted, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		m.trusted = append(m.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return m, nil
}

// Handler stores the resolved client IP in the request context.
func (m *ClientIPMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientIPKey{}, m.resolve(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *ClientIPMiddleware) resolve(r *http.Request) string {
	remote := remoteIP(r)
	if !m.isTrusted(remote) {
		return remote
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if _, err := netip.ParseAddr(hop); err != nil {
				// Garbage in the chain; stop at the last address we could verify.
				return remote
			}
			if !m.isTrusted(hop) {
				return hop
			}
			remote = hop
		}
		return remote
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}
	return remote
}

func (m *ClientIPMiddleware) isTrusted(ip string) bool {
	if len(m.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range m.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the address resolved by ClientIPMiddleware, or the
// request's RemoteAddr when the middleware did not run. Proxy headers are
// never read here.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey{}).(string); ok && ip != "" {
		return ip
	}
	return remoteIP(r)
}

func remoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return ip
}
