package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/testcraft-academy/courseflow/internal/domain"
)

// =============================================================================
// Error Response Tests - Security Focus
// =============================================================================

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := map[string]int{
		domain.EINVALID:      http.StatusBadRequest,
		domain.EINVALIDLINK:  http.StatusBadRequest,
		domain.EUNAUTHORIZED: http.StatusUnauthorized,
		domain.EFORBIDDEN:    http.StatusForbidden,
		domain.ENOTFOUND:     http.StatusNotFound,
		domain.ERATELIMIT:    http.StatusTooManyRequests,
		domain.EDELIVERY:     http.StatusBadGateway,
		domain.EINTERNAL:     http.StatusInternalServerError,
		"something-else":     http.StatusInternalServerError,
	}

	for code, want := range tests {
		if got := ErrorCodeToHTTPStatus(code); got != want {
			t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", code, got, want)
		}
	}
}

func TestValidationErrorResponse_DoesNotExposeOperationName(t *testing.T) {
	ve := domain.NewValidationError("SubscriptionService.Subscribe", "email", domain.MsgEmailInvalid)

	req := httptest.NewRequest("POST", "/subscribe", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	ValidationErrorResponse(rec, req, discardLogger(), ve)

	body := rec.Body.String()
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if strings.Contains(body, "SubscriptionService") {
		t.Errorf("response exposes internal operation name: %s", body)
	}
	if !strings.Contains(body, domain.MsgEmailInvalid) {
		t.Errorf("response should contain the first validation message, got: %s", body)
	}
}

func TestValidationErrorResponse_JSON(t *testing.T) {
	ve := domain.NewValidationError("SubscriptionService.Subscribe", "email", domain.MsgEmailRequired)

	req := httptest.NewRequest("POST", "/subscribe", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()

	ValidationErrorResponse(rec, req, discardLogger(), ve)

	body := rec.Body.String()
	if strings.Contains(body, "SubscriptionService") {
		t.Errorf("JSON response exposes internal operation name: %s", body)
	}
	if !strings.Contains(body, `"email"`) {
		t.Errorf("JSON response should contain field name: %s", body)
	}
	if !strings.Contains(body, domain.MsgEmailRequired) {
		t.Errorf("JSON response should contain field message: %s", body)
	}
}

func TestErrorResponse_InternalErrorHidesDetails(t *testing.T) {
	dbErr := errors.New(`ERROR: relation "subscriptions" does not exist (SQLSTATE 42P01)`)
	internalErr := domain.Internal(dbErr, "Postgres.FindByEmailAndCourse", "Subscription failed")

	for _, accept := range []string{"text/html", "application/json"} {
		t.Run(accept, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/confirm", nil)
			req.Header.Set("Accept", accept)
			rec := httptest.NewRecorder()

			ErrorResponse(rec, req, discardLogger(), internalErr)

			body := rec.Body.String()
			if rec.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want 500", rec.Code)
			}
			for _, leak := range []string{"relation", "SQLSTATE", "Postgres"} {
				if strings.Contains(body, leak) {
					t.Errorf("response exposes %q: %s", leak, body)
				}
			}
			if !strings.Contains(body, "internal error") {
				t.Errorf("response should contain generic internal error message, got: %s", body)
			}
		})
	}
}

func TestErrorResponse_UnwrappedErrorReturnsGeneric(t *testing.T) {
	rawErr := errors.New(`FATAL: password authentication failed for user "postgres"`)

	req := httptest.NewRequest("GET", "/confirm", nil)
	rec := httptest.NewRecorder()

	ErrorResponse(rec, req, discardLogger(), rawErr)

	body := rec.Body.String()
	if strings.Contains(body, "FATAL") || strings.Contains(body, "postgres") {
		t.Errorf("response exposes raw error: %s", body)
	}
	if !strings.Contains(body, "internal error") {
		t.Errorf("response should contain generic message, got: %s", body)
	}
}

func TestErrorResponse_DeliveryIsBadGateway(t *testing.T) {
	err := domain.Delivery(errors.New("postmark: 406 inactive recipient"), "SubscriptionService.Subscribe")

	req := httptest.NewRequest("POST", "/subscribe", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()

	ErrorResponse(rec, req, discardLogger(), err)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "postmark") {
		t.Errorf("response exposes provider error: %s", rec.Body.String())
	}
}
