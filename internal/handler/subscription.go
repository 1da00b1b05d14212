// Package handler contains the HTTP handlers for the public site.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/testcraft-academy/courseflow/internal/csrf"
	"github.com/testcraft-academy/courseflow/internal/domain"
	"github.com/testcraft-academy/courseflow/internal/middleware"
	"github.com/testcraft-academy/courseflow/internal/service"
)

// maxSubscribeBody bounds JSON capture requests.
const maxSubscribeBody = 4 << 10

// TemplateRenderer is the subset of *Renderer the handlers use.
type TemplateRenderer interface {
	RenderHTTP(w http.ResponseWriter, name string, data interface{})
	RenderHTTPStatus(w http.ResponseWriter, status int, name string, data interface{})
}

// SubscriptionHandler serves the capture form, the capture endpoint and the
// confirmation link.
//
// Dependencies:
// - subscriptions: capture and confirmation workflow
// - catalog: course lookup for the form page
// - renderer: HTML pages
// - isSecure: whether cookies carry the Secure flag
type SubscriptionHandler struct {
	subscriptions service.SubscriptionService
	catalog       *domain.Catalog
	renderer      TemplateRenderer
	logger        *slog.Logger
	isSecure      bool
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(
	subscriptions service.SubscriptionService,
	catalog *domain.Catalog,
	renderer TemplateRenderer,
	logger *slog.Logger,
	isSecure bool,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		catalog:       catalog,
		renderer:      renderer,
		logger:        logger,
		isSecure:      isSecure,
	}
}

// =============================================================================
// Page Data
// =============================================================================

// SubscribePageData is the data for the capture form.
type SubscribePageData struct {
	Title     string
	Course    domain.Course
	CSRFToken string
	Email     string
	Error     string
}

// SubscribeResultPageData is the data for the page shown after a capture.
type SubscribeResultPageData struct {
	Title      string
	Status     domain.SubscribeStatus
	Email      string
	CourseName string
	Failed     bool
	Message    string
}

// ConfirmPageData is the data for the confirmation result page.
type ConfirmPageData struct {
	Title   string
	Success bool
	Message string
}

// SubscribeRequest is the JSON body accepted by POST /subscribe.
type SubscribeRequest struct {
	Email      string `json:"email"`
	CourseID   string `json:"course_id"`
	CourseName string `json:"course_name,omitempty"`
}

// SubscribeResponse is the JSON body returned by POST /subscribe.
type SubscribeResponse struct {
	Status   domain.SubscribeStatus `json:"status"`
	Email    string                 `json:"email"`
	CourseID string                 `json:"course_id"`
	Message  string                 `json:"message"`
}

// ConfirmResponse is the JSON body returned by GET /confirm.
type ConfirmResponse struct {
	Status     domain.ConfirmStatus `json:"status"`
	CourseName string               `json:"course_name"`
	Message    string               `json:"message"`
}

// RegisterRoutes registers the subscription routes on the mux.
//
// Routes:
// - GET  /subscribe/{course} -> ShowSubscribe
// - POST /subscribe          -> Subscribe
// - GET  /confirm            -> Confirm
//
// subscribeMiddleware wraps POST /subscribe only (e.g. the per-IP rate limiter),
// outermost first.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, subscribeMiddleware ...func(http.Handler) http.Handler) {
	var subscribe http.Handler = http.HandlerFunc(h.Subscribe)
	for i := len(subscribeMiddleware) - 1; i >= 0; i-- {
		subscribe = subscribeMiddleware[i](subscribe)
	}

	mux.HandleFunc("GET /subscribe/{course}", h.ShowSubscribe)
	mux.Handle("POST /subscribe", subscribe)
	mux.HandleFunc("GET "+domain.ConfirmPath, h.Confirm)
}

// =============================================================================
// GET /subscribe/{course} - Capture Form
// =============================================================================

// ShowSubscribe renders the capture form for a catalog course and issues the
// CSRF cookie.
func (h *SubscriptionHandler) ShowSubscribe(w http.ResponseWriter, r *http.Request) {
	course, ok := h.catalog.Get(r.PathValue("course"))
	if !ok {
		h.renderer.RenderHTTPStatus(w, http.StatusNotFound, "public/not_found", ConfirmPageData{Title: "Course not found"})
		return
	}

	token, err := csrf.EnsureToken(w, r, h.isSecure)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, "SubscriptionHandler.ShowSubscribe", "Failed to issue CSRF token"))
		return
	}

	h.renderer.RenderHTTP(w, "public/subscribe", SubscribePageData{
		Title:     course.Name,
		Course:    course,
		CSRFToken: token,
	})
}

// =============================================================================
// POST /subscribe - Capture
// =============================================================================

// Subscribe handles a capture submission from the form or the JSON widget.
//
// Responses:
// - 201/200: created or pending (confirmation email sent), already confirmed
// - 400: validation failed (first violated rule only)
// - 403: CSRF check failed
// - 502: record stored but the confirmation email could not be sent
// - 500: storage failure
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	wantsJSON := acceptsJSON(r)

	if !csrf.ValidateRequest(r) {
		h.logger.Warn("csrf validation failed", "path", r.URL.Path, "ip", middleware.ClientIP(r))
		ForbiddenResponse(w, r, h.logger, "Your session expired. Please reload the page and try again.")
		return
	}

	req, err := decodeSubscribeRequest(w, r)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("SubscriptionHandler.Subscribe", "Invalid request body"))
		return
	}

	result, err := h.subscriptions.Subscribe(r.Context(), domain.SubscribeParams{
		Email:      req.Email,
		CourseID:   req.CourseID,
		CourseName: req.CourseName,
		SignupIP:   middleware.ClientIP(r),
	})
	if err != nil {
		h.handleSubscribeError(w, r, req, result, err, wantsJSON)
		return
	}

	status := http.StatusOK
	if result.Status == domain.SubscribeCreated {
		status = http.StatusCreated
	}

	if wantsJSON {
		writeJSON(w, status, SubscribeResponse{
			Status:   result.Status,
			Email:    result.Subscription.Email,
			CourseID: result.Subscription.CourseID,
			Message:  subscribeMessage(result),
		})
		return
	}

	h.renderer.RenderHTTPStatus(w, status, "public/subscribe_result", SubscribeResultPageData{
		Title:      "Check your inbox",
		Status:     result.Status,
		Email:      result.Subscription.Email,
		CourseName: result.Subscription.CourseName,
	})
}

func (h *SubscriptionHandler) handleSubscribeError(w http.ResponseWriter, r *http.Request, req SubscribeRequest, result *domain.SubscribeResult, err error, wantsJSON bool) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		if wantsJSON {
			ValidationErrorResponse(w, r, h.logger, err)
			return
		}
		h.renderForm(w, r, http.StatusBadRequest, req, ve.FirstMessage())

	case domain.ErrorCode(err) == domain.EDELIVERY && result != nil && !wantsJSON:
		logError(h.logger, r, err, domain.EDELIVERY, domain.ErrorOp(err), http.StatusBadGateway)
		h.renderer.RenderHTTPStatus(w, http.StatusBadGateway, "public/subscribe_result", SubscribeResultPageData{
			Title:      "Almost there",
			Email:      result.Subscription.Email,
			CourseName: result.Subscription.CourseName,
			Failed:     true,
			Message:    domain.MsgDelivery,
		})

	default:
		ErrorResponse(w, r, h.logger, err)
	}
}

// renderForm re-renders the capture form with an error message.
func (h *SubscriptionHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, req SubscribeRequest, message string) {
	course, ok := h.catalog.Get(req.CourseID)
	if !ok {
		course = domain.Course{ID: req.CourseID, Name: h.catalog.NameFor(req.CourseID)}
	}

	h.renderer.RenderHTTPStatus(w, status, "public/subscribe", SubscribePageData{
		Title:     course.Name,
		Course:    course,
		CSRFToken: csrf.TokenFromCookie(r),
		Email:     req.Email,
		Error:     message,
	})
}

// decodeSubscribeRequest reads the capture fields from a JSON or form body.
func decodeSubscribeRequest(w http.ResponseWriter, r *http.Request) (SubscribeRequest, error) {
	var req SubscribeRequest

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		r.Body = http.MaxBytesReader(w, r.Body, maxSubscribeBody)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("decode subscribe request: %w", err)
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("parse subscribe form: %w", err)
	}
	req.Email = r.PostFormValue("email")
	req.CourseID = r.PostFormValue("course_id")
	req.CourseName = r.PostFormValue("course_name")
	return req, nil
}

func subscribeMessage(result *domain.SubscribeResult) string {
	switch result.Status {
	case domain.SubscribeAlreadyConfirmed:
		return "You are already subscribed to this course."
	case domain.SubscribePending:
		return "We sent your confirmation link again. Please check your inbox."
	default:
		return "Please check your inbox to confirm your subscription."
	}
}

// =============================================================================
// GET /confirm - Confirmation Link
// =============================================================================

// Confirm handles a click on the emailed confirmation link.
//
// Query Parameters:
// - token: the confirmation token
// - email: the subscriber address
// - framework: the course id
//
// Every mismatch renders the same "invalid or expired" message so the page
// never reveals which value was wrong. Storage failures render a generic 500.
func (h *SubscriptionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	result, err := h.subscriptions.Confirm(r.Context(), domain.ConfirmParams{
		Token:    q.Get(domain.ParamToken),
		Email:    q.Get(domain.ParamEmail),
		CourseID: q.Get(domain.ParamFramework),
	})
	if err != nil {
		if acceptsJSON(r) {
			ErrorResponse(w, r, h.logger, err)
			return
		}

		code := domain.ErrorCode(err)
		status := ErrorCodeToHTTPStatus(code)
		logError(h.logger, r, err, code, domain.ErrorOp(err), status)
		h.renderer.RenderHTTPStatus(w, status, "public/confirm", ConfirmPageData{
			Title:   "Confirmation failed",
			Message: domain.ErrorMessage(err),
		})
		return
	}

	message := confirmMessage(result)
	if acceptsJSON(r) {
		writeJSON(w, http.StatusOK, ConfirmResponse{
			Status:     result.Status,
			CourseName: result.CourseName,
			Message:    message,
		})
		return
	}

	h.renderer.RenderHTTP(w, "public/confirm", ConfirmPageData{
		Title:   "Subscription confirmed",
		Success: true,
		Message: message,
	})
}

func confirmMessage(result *domain.ConfirmResult) string {
	if result.Status == domain.ConfirmAlreadyConfirmed {
		return fmt.Sprintf("You're already confirmed for %s.", result.CourseName)
	}
	return fmt.Sprintf("Thanks! You're confirmed for %s. Your first lesson is on its way.", result.CourseName)
}
