package handler

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/testcraft-academy/courseflow/internal/domain"
	"github.com/testcraft-academy/courseflow/internal/storage"
	"github.com/testcraft-academy/courseflow/internal/worker"
)

// CronHandler turns scheduler calls into background jobs.
// Authentication is handled by middleware.CronAuthMiddleware.
type CronHandler struct {
	queue   worker.Enqueuer
	archive storage.Storage // nil when archiving is disabled
	logger  *slog.Logger
}

// NewCronHandler creates a new CronHandler. archive may be nil.
func NewCronHandler(queue worker.Enqueuer, archive storage.Storage, logger *slog.Logger) *CronHandler {
	return &CronHandler{
		queue:   queue,
		archive: archive,
		logger:  logger,
	}
}

// EnqueueResponse is the JSON body returned when a job is accepted.
type EnqueueResponse struct {
	JobID       string    `json:"job_id"`
	JobType     string    `json:"job_type"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// RegisterRoutes registers the cron routes on the mux, wrapped in auth.
//
// Routes:
// - POST /cron/reminder-sweep          -> ReminderSweep
// - GET  /cron/reminder-sweep/{run_id} -> SweepReport
func (h *CronHandler) RegisterRoutes(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.Handle("POST /cron/reminder-sweep", auth(http.HandlerFunc(h.ReminderSweep)))
	mux.Handle("GET /cron/reminder-sweep/{run_id}", auth(http.HandlerFunc(h.SweepReport)))
}

// ReminderSweep enqueues a reminder sweep and returns 202 immediately.
// The worker pool runs the sweep.
func (h *CronHandler) ReminderSweep(w http.ResponseWriter, r *http.Request) {
	triggeredBy := r.URL.Query().Get("source")
	if triggeredBy == "" {
		triggeredBy = "cron"
	}

	job, err := worker.EnqueueReminderSweep(r.Context(), h.queue, triggeredBy)
	if err != nil {
		r.Header.Set("Accept", "application/json")
		ErrorResponse(w, r, h.logger, domain.Internal(err, "CronHandler.ReminderSweep", "Failed to enqueue reminder sweep"))
		return
	}

	h.logger.Info("reminder sweep enqueued", "job_id", job.ID, "triggered_by", triggeredBy)

	writeJSON(w, http.StatusAccepted, EnqueueResponse{
		JobID:       job.ID.String(),
		JobType:     job.JobType,
		ScheduledAt: job.ScheduledAt,
	})
}

// SweepReport returns an archived sweep report by run id.
func (h *CronHandler) SweepReport(w http.ResponseWriter, r *http.Request) {
	const op = "CronHandler.SweepReport"
	r.Header.Set("Accept", "application/json")

	runID, err := ulid.ParseStrict(r.PathValue("run_id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid run id"))
		return
	}

	if h.archive == nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.ENOTFOUND, op, "Report archiving is disabled"))
		return
	}

	rc, info, err := h.archive.Get(r.Context(), storage.ReportKey(runID.String()))
	if err != nil {
		if storage.IsNotFound(err) {
			ErrorResponse(w, r, h.logger, domain.Errorf(domain.ENOTFOUND, op, "Report not found"))
			return
		}
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to read sweep report"))
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("failed to stream sweep report", "run_id", runID.String(), "error", err)
	}
}
