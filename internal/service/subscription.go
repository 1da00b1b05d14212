// Package service contains the business logic layer.
//
// Services orchestrate interactions between the subscription store, the
// outbound notifier, and domain rules. They are responsible for:
// - Input validation
// - Ordering store mutations before dependent email sends
// - Error translation (store and delivery errors -> domain errors)
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/testcraft-academy/courseflow/internal/domain"
	"github.com/testcraft-academy/courseflow/internal/metrics"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// SubscriptionStore persists subscription records.
//
// Implementations return domain.ErrSubscriptionNotFound when no row matches
// and domain.ErrDuplicateSubscription when an insert collides. Any other
// error is treated as a storage failure.
type SubscriptionStore interface {
	FindByEmailAndCourse(ctx context.Context, email, courseID string) (*domain.Subscription, error)
	Insert(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
	FindByToken(ctx context.Context, email, courseID, token string) (*domain.Subscription, error)
	Confirm(ctx context.Context, email, courseID string) error
	FindStaleUnconfirmed(ctx context.Context, olderThan time.Time) ([]domain.Subscription, error)
}

// Notifier sends the workflow's transactional emails.
type Notifier interface {
	SendConfirmation(ctx context.Context, email, courseID, courseName, token string) error
	SendWelcome(ctx context.Context, email, courseName string) error
	SendReminder(ctx context.Context, email, confirmationLink, subject string) error
}

// =============================================================================
// Interface Definition
// =============================================================================

// SubscriptionService captures and confirms course subscriptions.
type SubscriptionService interface {
	// Subscribe validates the address and records a pending subscription,
	// then mails the confirmation link.
	//
	// Returns a *domain.ValidationError for bad input (nothing is stored).
	// Returns domain.EINTERNAL when the store fails.
	// Returns domain.EDELIVERY together with a non-nil result when the record
	// is stored but the email could not be sent.
	Subscribe(ctx context.Context, params domain.SubscribeParams) (*domain.SubscribeResult, error)

	// Confirm validates a confirmation link and marks the subscription
	// confirmed, then sends the welcome email.
	//
	// Confirming an already-confirmed pair succeeds without side effects.
	// Returns domain.EINVALIDLINK for any mismatch, with a message that does
	// not reveal which value was wrong.
	// Returns domain.EINTERNAL when the store fails.
	Confirm(ctx context.Context, params domain.ConfirmParams) (*domain.ConfirmResult, error)
}

// =============================================================================
// Implementation
// =============================================================================

type subscriptionService struct {
	store    SubscriptionStore
	notifier Notifier
	catalog  *domain.Catalog
	logger   *slog.Logger
}

// NewSubscriptionService creates a new SubscriptionService instance.
func NewSubscriptionService(store SubscriptionStore, notifier Notifier, catalog *domain.Catalog, logger *slog.Logger) SubscriptionService {
	return &subscriptionService{
		store:    store,
		notifier: notifier,
		catalog:  catalog,
		logger:   logger,
	}
}

// =============================================================================
// Subscribe Implementation
// =============================================================================

// Subscribe records a subscription attempt.
//
// Flow:
// 1. Normalize and validate input (no I/O on failure)
// 2. Look up the (email, course) pair
//   - confirmed: report already subscribed, send nothing
//   - pending: reuse the stored token
//   - missing: generate a token and insert a pending record
//
// 3. Send the confirmation email
//
// A lost insert race is resolved by re-reading the winner's row.
func (s *subscriptionService) Subscribe(ctx context.Context, params domain.SubscribeParams) (*domain.SubscribeResult, error) {
	const op = "SubscriptionService.Subscribe"

	email := domain.NormalizeEmail(params.Email)
	courseID := strings.TrimSpace(params.CourseID)

	// 1. Validate
	if err := domain.ValidateEmail(op, email); err != nil {
		metrics.SubscriptionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	courseName := strings.TrimSpace(params.CourseName)
	if err := domain.ValidateCourse(op, courseID, courseName); err != nil {
		metrics.SubscriptionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	// Catalog courses always use the catalog name; a client-supplied name
	// only labels courses the catalog does not know.
	if course, ok := s.catalog.Get(courseID); ok {
		courseName = course.Name
	} else if courseName == "" {
		courseName = courseID
	}

	// 2. Find or create
	result, err := s.findOrCreate(ctx, op, &domain.Subscription{
		Email:      email,
		CourseID:   courseID,
		CourseName: courseName,
		SignupIP:   params.SignupIP,
	})
	if err != nil {
		metrics.SubscriptionsTotal.WithLabelValues("storage_error").Inc()
		return nil, err
	}

	if result.Status == domain.SubscribeAlreadyConfirmed {
		metrics.SubscriptionsTotal.WithLabelValues(string(result.Status)).Inc()
		s.logger.Info("subscription already confirmed", "email", email, "course_id", courseID)
		return result, nil
	}

	// 3. Notify. The record stays in place if this fails.
	sub := result.Subscription
	if err := s.notifier.SendConfirmation(ctx, sub.Email, sub.CourseID, courseName, sub.ConfirmationToken); err != nil {
		metrics.SubscriptionsTotal.WithLabelValues("delivery_error").Inc()
		return result, domain.Delivery(err, op)
	}

	metrics.SubscriptionsTotal.WithLabelValues(string(result.Status)).Inc()
	s.logger.Info("confirmation email sent",
		"email", sub.Email,
		"course_id", sub.CourseID,
		"status", result.Status,
	)

	return result, nil
}

// findOrCreate resolves the existing record for the pair or inserts a new one.
func (s *subscriptionService) findOrCreate(ctx context.Context, op string, candidate *domain.Subscription) (*domain.SubscribeResult, error) {
	existing, err := s.store.FindByEmailAndCourse(ctx, candidate.Email, candidate.CourseID)
	switch {
	case err == nil:
		return existingResult(op, existing)
	case !errors.Is(err, domain.ErrSubscriptionNotFound):
		return nil, domain.Internal(err, op, "Subscription failed")
	}

	token, err := domain.GenerateConfirmationToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate confirmation token")
	}
	candidate.ConfirmationToken = token

	created, err := s.store.Insert(ctx, candidate)
	if err == nil {
		s.logger.Info("subscription created", "subscription_id", created.ID, "email", created.Email, "course_id", created.CourseID)
		return &domain.SubscribeResult{Status: domain.SubscribeCreated, Subscription: created}, nil
	}
	if !errors.Is(err, domain.ErrDuplicateSubscription) {
		return nil, domain.Internal(err, op, "Subscription failed")
	}

	// Another request inserted the pair between our read and write.
	existing, err = s.store.FindByEmailAndCourse(ctx, candidate.Email, candidate.CourseID)
	if err != nil {
		return nil, domain.Internal(err, op, "Subscription failed")
	}
	return existingResult(op, existing)
}

func existingResult(op string, sub *domain.Subscription) (*domain.SubscribeResult, error) {
	if sub.IsConfirmed {
		return &domain.SubscribeResult{Status: domain.SubscribeAlreadyConfirmed, Subscription: sub}, nil
	}
	if sub.ConfirmationToken == "" {
		return nil, domain.Internal(errors.New("pending subscription has no token"), op, "Subscription failed")
	}
	return &domain.SubscribeResult{Status: domain.SubscribePending, Subscription: sub}, nil
}

// =============================================================================
// Confirm Implementation
// =============================================================================

// Confirm handles a click on a confirmation link.
//
// Flow:
// 1. Look up the (email, course) pair; missing -> invalid link
// 2. Already confirmed -> success, nothing else happens
// 3. Require an exact token match on the pending record
// 4. Persist the confirmation
// 5. Send the welcome email (failure is logged, not returned)
func (s *subscriptionService) Confirm(ctx context.Context, params domain.ConfirmParams) (*domain.ConfirmResult, error) {
	const op = "SubscriptionService.Confirm"

	email := domain.NormalizeEmail(params.Email)
	courseID := strings.TrimSpace(params.CourseID)
	token := strings.TrimSpace(params.Token)

	if email == "" || courseID == "" {
		metrics.ConfirmationsTotal.WithLabelValues("invalid_link").Inc()
		return nil, domain.InvalidLink(op)
	}

	// 1. Look up by pair
	sub, err := s.store.FindByEmailAndCourse(ctx, email, courseID)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			metrics.ConfirmationsTotal.WithLabelValues("invalid_link").Inc()
			return nil, domain.InvalidLink(op)
		}
		metrics.ConfirmationsTotal.WithLabelValues("storage_error").Inc()
		return nil, domain.Internal(err, op, "Failed to look up subscription")
	}

	// 2. Already confirmed
	if sub.IsConfirmed {
		metrics.ConfirmationsTotal.WithLabelValues("already_confirmed").Inc()
		s.logger.Info("subscription already confirmed", "subscription_id", sub.ID)
		return &domain.ConfirmResult{Status: domain.ConfirmAlreadyConfirmed, CourseName: sub.CourseName}, nil
	}

	// 3. Token must match the pending record
	if token == "" {
		metrics.ConfirmationsTotal.WithLabelValues("invalid_link").Inc()
		return nil, domain.InvalidLink(op)
	}
	if _, err := s.store.FindByToken(ctx, email, courseID, token); err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			metrics.ConfirmationsTotal.WithLabelValues("invalid_link").Inc()
			return nil, domain.InvalidLink(op)
		}
		metrics.ConfirmationsTotal.WithLabelValues("storage_error").Inc()
		return nil, domain.Internal(err, op, "Failed to look up subscription")
	}

	// 4. Persist before sending anything
	if err := s.store.Confirm(ctx, email, courseID); err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			// Confirmed by a concurrent click between steps 3 and 4.
			metrics.ConfirmationsTotal.WithLabelValues("already_confirmed").Inc()
			return &domain.ConfirmResult{Status: domain.ConfirmAlreadyConfirmed, CourseName: sub.CourseName}, nil
		}
		metrics.ConfirmationsTotal.WithLabelValues("storage_error").Inc()
		return nil, domain.Internal(err, op, "Failed to confirm subscription")
	}

	metrics.ConfirmationsTotal.WithLabelValues("confirmed").Inc()
	s.logger.Info("subscription confirmed", "subscription_id", sub.ID, "email", email, "course_id", courseID)

	// 5. Welcome email. Not retried; the confirmation already stands.
	result := &domain.ConfirmResult{Status: domain.ConfirmConfirmed, CourseName: sub.CourseName}
	if err := s.notifier.SendWelcome(ctx, email, sub.CourseName); err != nil {
		s.logger.Warn("failed to send welcome email",
			"subscription_id", sub.ID,
			"error", err,
		)
		return result, nil
	}
	result.WelcomeSent = true

	return result, nil
}
