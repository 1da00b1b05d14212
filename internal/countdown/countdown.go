// Package countdown tracks per-visitor offer deadlines.
//
// The first time a visitor is seen a deadline of now + duration is stored.
// Later lookups return the same deadline until it expires from the store, so
// reloading the page never resets the timer.
package countdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultDuration is the offer window given to a new visitor.
	DefaultDuration = 24 * time.Hour

	// retention is how long an expired deadline is kept so the visitor keeps
	// seeing "expired" instead of a fresh timer.
	retention = 7 * 24 * time.Hour
)

// ErrEmptyKey is returned when no visitor key is supplied.
var ErrEmptyKey = errors.New("countdown: visitor key is required")

// Store keeps deadlines keyed by visitor.
type Store interface {
	// Get returns the stored deadline and whether one was found.
	Get(ctx context.Context, key string) (time.Time, bool, error)

	// SetIfAbsent stores deadline under key unless a value already exists,
	// and returns whichever deadline is stored after the call.
	SetIfAbsent(ctx context.Context, key string, deadline time.Time, ttl time.Duration) (time.Time, error)
}

// Status is the countdown state for one visitor.
type Status struct {
	Deadline  time.Time     `json:"deadline"`
	Remaining time.Duration `json:"-"`
	Expired   bool          `json:"expired"`
}

// RemainingSeconds is Remaining rounded down to whole seconds.
func (s Status) RemainingSeconds() int64 {
	return int64(s.Remaining / time.Second)
}

// Service resolves visitor deadlines against a Store.
type Service struct {
	store    Store
	duration time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service. A non-positive duration uses DefaultDuration.
func NewService(store Store, duration time.Duration, logger *slog.Logger, opts ...Option) *Service {
	if duration <= 0 {
		duration = DefaultDuration
	}
	s := &Service{
		store:    store,
		duration: duration,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deadline returns the visitor's countdown, creating it on first sight.
func (s *Service) Deadline(ctx context.Context, visitorKey string) (Status, error) {
	if visitorKey == "" {
		return Status{}, ErrEmptyKey
	}

	now := s.now()

	deadline, found, err := s.store.Get(ctx, visitorKey)
	if err != nil {
		return Status{}, fmt.Errorf("countdown: get %s: %w", visitorKey, err)
	}

	if !found {
		deadline, err = s.store.SetIfAbsent(ctx, visitorKey, now.Add(s.duration), s.duration+retention)
		if err != nil {
			return Status{}, fmt.Errorf("countdown: set %s: %w", visitorKey, err)
		}
		s.logger.Debug("countdown started", "visitor", visitorKey, "deadline", deadline)
	}

	return statusAt(deadline, now), nil
}

func statusAt(deadline, now time.Time) Status {
	remaining := deadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Deadline:  deadline,
		Remaining: remaining,
		Expired:   !now.Before(deadline),
	}
}
