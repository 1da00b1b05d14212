package worker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/testcraft-academy/courseflow/internal/repository"
)

// Queue is the job storage the worker polls.
type Queue interface {
	// Claim dequeues the next runnable job and marks it running.
	// Returns sql.ErrNoRows when nothing is runnable.
	Claim(ctx context.Context) (repository.Job, error)

	// Complete marks a job completed.
	Complete(ctx context.Context, id uuid.UUID) error

	// Fail records a failure. Permanent failures are never rescheduled;
	// others are retried with backoff until max_attempts is reached.
	Fail(ctx context.Context, id uuid.UUID, message string, permanent bool) error

	// RecoverStale handles jobs stuck in 'running' longer than threshold.
	// Jobs with attempts left go back to pending; jobs that used their last
	// attempt are marked failed and never run again.
	RecoverStale(ctx context.Context, threshold time.Duration) (StaleJobs, error)
}

// StaleJobs counts the outcome of RecoverStale.
type StaleJobs struct {
	Requeued int64
	Failed   int64
}

// PostgresQueue is a Queue over the jobs table. Claims use
// FOR UPDATE SKIP LOCKED so concurrent workers never share a job.
type PostgresQueue struct {
	db      *sql.DB
	queries *repository.Queries
}

// NewPostgresQueue creates a PostgresQueue.
func NewPostgresQueue(db *sql.DB, queries *repository.Queries) *PostgresQueue {
	return &PostgresQueue{db: db, queries: queries}
}

// Claim implements Queue.
func (q *PostgresQueue) Claim(ctx context.Context) (repository.Job, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return repository.Job{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := q.queries.WithTx(tx)

	job, err := qtx.DequeueJob(ctx)
	if err != nil {
		return repository.Job{}, err // sql.ErrNoRows when the queue is empty
	}

	if err := qtx.UpdateJobStarted(ctx, job.ID); err != nil {
		return repository.Job{}, fmt.Errorf("mark job started: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return repository.Job{}, fmt.Errorf("commit dequeue: %w", err)
	}

	job.Attempts++
	return job, nil
}

// Complete implements Queue.
func (q *PostgresQueue) Complete(ctx context.Context, id uuid.UUID) error {
	if err := q.queries.UpdateJobCompleted(ctx, id); err != nil {
		return fmt.Errorf("update job completed: %w", err)
	}
	return nil
}

// Fail implements Queue.
func (q *PostgresQueue) Fail(ctx context.Context, id uuid.UUID, message string, permanent bool) error {
	msg := sql.NullString{String: message, Valid: true}

	var err error
	if permanent {
		err = q.queries.FailJobPermanently(ctx, repository.FailJobPermanentlyParams{ID: id, ErrorMessage: msg})
	} else {
		err = q.queries.UpdateJobFailed(ctx, repository.UpdateJobFailedParams{ID: id, ErrorMessage: msg})
	}
	if err != nil {
		return fmt.Errorf("update job failed: %w", err)
	}
	return nil
}

// RecoverStale implements Queue.
func (q *PostgresQueue) RecoverStale(ctx context.Context, threshold time.Duration) (StaleJobs, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return StaleJobs{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := q.queries.WithTx(tx)
	secs := threshold.Seconds()

	var stale StaleJobs
	if stale.Failed, err = qtx.FailExhaustedStaleJobs(ctx, secs); err != nil {
		return StaleJobs{}, fmt.Errorf("fail exhausted stale jobs: %w", err)
	}
	if stale.Requeued, err = qtx.RequeueStaleJobs(ctx, secs); err != nil {
		return StaleJobs{}, fmt.Errorf("requeue stale jobs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return StaleJobs{}, fmt.Errorf("commit stale recovery: %w", err)
	}
	return stale, nil
}

var _ Queue = (*PostgresQueue)(nil)
