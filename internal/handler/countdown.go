package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/testcraft-academy/courseflow/internal/countdown"
	"github.com/testcraft-academy/courseflow/internal/domain"
)

const (
	// VisitorCookieName identifies a browser for the offer countdown.
	VisitorCookieName = "cf_visitor"

	visitorCookieMaxAge = 365 * 24 * 60 * 60
)

// DeadlineResolver returns the offer deadline for a visitor.
type DeadlineResolver interface {
	Deadline(ctx context.Context, visitorKey string) (countdown.Status, error)
}

// CountdownHandler serves the per-visitor offer countdown.
type CountdownHandler struct {
	countdown DeadlineResolver
	logger    *slog.Logger
	isSecure  bool
}

// NewCountdownHandler creates a new CountdownHandler.
func NewCountdownHandler(resolver DeadlineResolver, logger *slog.Logger, isSecure bool) *CountdownHandler {
	return &CountdownHandler{
		countdown: resolver,
		logger:    logger,
		isSecure:  isSecure,
	}
}

// CountdownResponse is the JSON body returned by GET /api/countdown.
type CountdownResponse struct {
	Deadline         time.Time `json:"deadline"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	Expired          bool      `json:"expired"`
}

// RegisterRoutes registers the countdown routes on the mux.
func (h *CountdownHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/countdown", h.Show)
}

// Show returns the visitor's deadline, assigning a visitor cookie on the
// first request. Reloading never restarts the timer.
func (h *CountdownHandler) Show(w http.ResponseWriter, r *http.Request) {
	visitor := visitorID(r)
	if visitor == "" {
		visitor = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     VisitorCookieName,
			Value:    visitor,
			Path:     "/",
			MaxAge:   visitorCookieMaxAge,
			HttpOnly: true,
			Secure:   h.isSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	status, err := h.countdown.Deadline(r.Context(), visitor)
	if err != nil {
		r.Header.Set("Accept", "application/json")
		ErrorResponse(w, r, h.logger, domain.Internal(err, "CountdownHandler.Show", "Failed to load countdown"))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, CountdownResponse{
		Deadline:         status.Deadline.UTC(),
		RemainingSeconds: status.RemainingSeconds(),
		Expired:          status.Expired,
	})
}

// visitorID returns the visitor cookie if it holds a valid UUID.
func visitorID(r *http.Request) string {
	cookie, err := r.Cookie(VisitorCookieName)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return ""
	}
	return id.String()
}
