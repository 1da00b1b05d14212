package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/testcraft-academy/courseflow/internal/domain"
)

// CronAuthMiddleware guards scheduler endpoints with a shared bearer secret.
type CronAuthMiddleware struct {
	secret []byte
	logger *slog.Logger
}

// NewCronAuthMiddleware creates a new cron auth middleware. An empty secret
// rejects every request, so an unconfigured deployment cannot be triggered.
func NewCronAuthMiddleware(secret string, logger *slog.Logger) *CronAuthMiddleware {
	return &CronAuthMiddleware{
		secret: []byte(secret),
		logger: logger,
	}
}

// Handler returns middleware that requires "Authorization: Bearer <secret>".
func (m *CronAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.secret) == 0 {
			m.logger.Warn("cron request rejected: no secret configured", "path", r.URL.Path)
			writeError(w, r, http.StatusServiceUnavailable, "unavailable", "Scheduler endpoint is disabled")
			return
		}

		token, ok := bearerToken(r)
		if !ok || subtle.ConstantTimeCompare([]byte(token), m.secret) != 1 {
			m.logger.Warn("cron request rejected", "path", r.URL.Path, "ip", ClientIP(r))
			w.Header().Set("WWW-Authenticate", `Bearer realm="cron"`)
			writeError(w, r, http.StatusUnauthorized, domain.EUNAUTHORIZED, "Invalid scheduler credentials")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
