package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/testcraft-academy/courseflow/internal/repository"
)

// Job type constants. These must match the JobHandler.Type() values.
const (
	JobTypeReminderSweep = "reminder_sweep"
)

// Priority constants for job scheduling
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// ReminderSweepPayload is the payload for reminder sweep jobs.
type ReminderSweepPayload struct {
	TriggeredBy string    `json:"triggered_by"` // "cron", "manual"
	RequestedAt time.Time `json:"requested_at"`
}

// Enqueuer inserts jobs. *repository.Queries satisfies it.
type Enqueuer interface {
	EnqueueJob(ctx context.Context, arg repository.EnqueueJobParams) (repository.Job, error)
}

// EnqueueOption is a functional option for customizing job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.ScheduledAt = p.ScheduledAt.Add(delay)
	}
}

// EnqueueJob marshals payload and inserts a pending job.
func EnqueueJob(
	ctx context.Context,
	q Enqueuer,
	jobType string,
	payload interface{},
	opts ...EnqueueOption,
) (repository.Job, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&params)
	}

	job, err := q.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}

	return job, nil
}

// EnqueueReminderSweep enqueues a single reminder sweep.
//
// Sweeps run at most once per trigger: a failed sweep is not retried because
// its sends may already have gone out. The next scheduled trigger picks up
// whatever is still pending.
func EnqueueReminderSweep(ctx context.Context, q Enqueuer, triggeredBy string, opts ...EnqueueOption) (repository.Job, error) {
	payload := ReminderSweepPayload{
		TriggeredBy: triggeredBy,
		RequestedAt: time.Now().UTC(),
	}

	opts = append([]EnqueueOption{WithMaxAttempts(1), WithPriority(PriorityHigh)}, opts...)
	return EnqueueJob(ctx, q, JobTypeReminderSweep, payload, opts...)
}
