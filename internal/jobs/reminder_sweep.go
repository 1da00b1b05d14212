// Package jobs contains the background job handlers run by the worker.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/testcraft-academy/courseflow/internal/domain"
	"github.com/testcraft-academy/courseflow/internal/service"
	"github.com/testcraft-academy/courseflow/internal/storage"
	"github.com/testcraft-academy/courseflow/internal/worker"
)

// ReminderSweepHandler runs the reminder sweep and archives its report.
type ReminderSweepHandler struct {
	reminders service.ReminderService
	archive   storage.Storage // nil disables archiving
	logger    *slog.Logger
}

// NewReminderSweepHandler creates a handler for reminder sweep jobs.
// archive may be nil.
func NewReminderSweepHandler(reminders service.ReminderService, archive storage.Storage, logger *slog.Logger) *ReminderSweepHandler {
	return &ReminderSweepHandler{
		reminders: reminders,
		archive:   archive,
		logger:    logger,
	}
}

// Type returns the job type identifier.
func (h *ReminderSweepHandler) Type() string {
	return worker.JobTypeReminderSweep
}

// Handle executes a queued sweep.
func (h *ReminderSweepHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.ReminderSweepPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
		}
	}

	h.logger.Info("Running reminder sweep", "triggered_by", p.TriggeredBy, "requested_at", p.RequestedAt)

	if _, err := h.Run(ctx); err != nil {
		// A partial sweep may already have sent mail; never retry it.
		return worker.NewPermanentError(err)
	}
	return nil
}

// Run performs one sweep and archives the report. Only a failure of the
// sweep itself is returned; archive errors are logged.
func (h *ReminderSweepHandler) Run(ctx context.Context) (*domain.SweepReport, error) {
	report, err := h.reminders.Sweep(ctx)
	if err != nil {
		return nil, err
	}

	h.archiveReport(ctx, report)
	return report, nil
}

func (h *ReminderSweepHandler) archiveReport(ctx context.Context, report *domain.SweepReport) {
	if h.archive == nil {
		return
	}

	key := storage.ReportKey(report.RunID)
	if err := storage.PutJSON(ctx, h.archive, key, report); err != nil {
		h.logger.Error("Failed to archive sweep report", "run_id", report.RunID, "key", key, "error", err)
		return
	}
	h.logger.Info("Archived sweep report", "run_id", report.RunID, "key", key)
}

var _ worker.JobHandler = (*ReminderSweepHandler)(nil)
