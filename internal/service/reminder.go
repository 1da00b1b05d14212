package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/testcraft-academy/courseflow/internal/domain"
	"github.com/testcraft-academy/courseflow/internal/metrics"
)

const (
	// DefaultStaleAfter is how old a pending subscription must be before it
	// receives a reminder.
	DefaultStaleAfter = 24 * time.Hour

	// DefaultReminderConcurrency bounds the number of reminder sends in flight.
	DefaultReminderConcurrency = 4
)

// ReminderService re-prompts subscribers who have not confirmed.
type ReminderService interface {
	// Sweep sends one reminder to every stale pending subscription.
	//
	// Individual send failures are recorded in the report and never abort the
	// sweep. Only a failure of the initial query is returned as an error.
	Sweep(ctx context.Context) (*domain.SweepReport, error)
}

// ReminderConfig configures the reminder sweep.
type ReminderConfig struct {
	BaseURL     string           // used to rebuild confirmation links
	StaleAfter  time.Duration    // default DefaultStaleAfter
	Concurrency int              // default DefaultReminderConcurrency
	Now         func() time.Time // default time.Now
}

type reminderService struct {
	store    SubscriptionStore
	notifier Notifier
	config   ReminderConfig
	logger   *slog.Logger
}

// NewReminderService creates a new ReminderService instance.
func NewReminderService(store SubscriptionStore, notifier Notifier, config ReminderConfig, logger *slog.Logger) ReminderService {
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultStaleAfter
	}
	if config.Concurrency < 1 {
		config.Concurrency = DefaultReminderConcurrency
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &reminderService{
		store:    store,
		notifier: notifier,
		config:   config,
		logger:   logger,
	}
}

// Sweep implements ReminderService.
//
// Flow:
// 1. Query pending subscriptions older than the cutoff (fatal on error)
// 2. Fan out one reminder per record, bounded by Concurrency
// 3. Aggregate per-record outcomes into the report
//
// Subjects rotate by the record's position in the query order, so a given
// batch always maps to the same subjects.
func (s *reminderService) Sweep(ctx context.Context) (*domain.SweepReport, error) {
	const op = "ReminderService.Sweep"

	startedAt := s.config.Now()
	cutoff := startedAt.Add(-s.config.StaleAfter)
	runID := ulid.MustNew(ulid.Timestamp(startedAt), ulid.DefaultEntropy())

	logger := s.logger.With("run_id", runID.String())

	// 1. Candidates
	candidates, err := s.store.FindStaleUnconfirmed(ctx, cutoff)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to query stale subscriptions")
	}
	metrics.ReminderSweepCandidates.Set(float64(len(candidates)))
	logger.Info("reminder sweep started", "candidates", len(candidates), "cutoff", cutoff)

	// 2. Fan out. Each goroutine writes only its own slot.
	outcomes := make([]error, len(candidates))
	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)

	for i := range candidates {
		sub := candidates[i]
		g.Go(func() error {
			link := domain.ConfirmationURL(s.config.BaseURL, sub.Email, sub.CourseID, sub.ConfirmationToken)
			outcomes[i] = s.notifier.SendReminder(ctx, sub.Email, link, domain.ReminderSubject(i))
			return nil
		})
	}
	_ = g.Wait()

	// 3. Report
	report := &domain.SweepReport{
		RunID:     runID.String(),
		StartedAt: startedAt,
		Cutoff:    cutoff,
		Total:     len(candidates),
	}
	for i, sendErr := range outcomes {
		if sendErr == nil {
			report.Sent++
			continue
		}
		report.Failed++
		report.Failures = append(report.Failures, domain.SweepFailure{
			SubscriptionID: candidates[i].ID.String(),
			Email:          candidates[i].Email,
			CourseID:       candidates[i].CourseID,
			Error:          sendErr.Error(),
		})
		logger.Warn("reminder send failed",
			"subscription_id", candidates[i].ID,
			"error", sendErr,
		)
	}
	report.FinishedAt = s.config.Now()

	logger.Info("reminder sweep finished",
		"total", report.Total,
		"sent", report.Sent,
		"failed", report.Failed,
	)

	return report, nil
}
