package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testcraft-academy/courseflow/internal/domain"
	"github.com/testcraft-academy/courseflow/internal/storage"
	"github.com/testcraft-academy/courseflow/internal/worker"
)

type stubReminders struct {
	report *domain.SweepReport
	err    error
	calls  int
}

func (s *stubReminders) Sweep(context.Context) (*domain.SweepReport, error) {
	s.calls++
	return s.report, s.err
}

// brokenStorage fails every write.
type brokenStorage struct{}

func (brokenStorage) Put(context.Context, string, io.Reader, storage.PutOptions) error {
	return errors.New("bucket unavailable")
}

func (brokenStorage) Get(context.Context, string) (io.ReadCloser, storage.ObjectInfo, error) {
	return nil, storage.ObjectInfo{}, storage.ErrNotFound
}

func (brokenStorage) Exists(context.Context, string) (bool, error) { return false, nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleReport() *domain.SweepReport {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return &domain.SweepReport{
		RunID:      "01JNQZ8Y2M3K4V5W6X7Y8Z9A0B",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Cutoff:     start.Add(-24 * time.Hour),
		Total:      2,
		Sent:       1,
		Failed:     1,
		Failures: []domain.SweepFailure{
			{SubscriptionID: "s-1", Email: "a@b.co", CourseID: "c1", Error: "mailbox full"},
		},
	}
}

func TestReminderSweepHandler_Type(t *testing.T) {
	h := NewReminderSweepHandler(&stubReminders{}, nil, discardLogger())
	assert.Equal(t, worker.JobTypeReminderSweep, h.Type())
}

func TestReminderSweepHandler_ArchivesReport(t *testing.T) {
	archive, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()}, discardLogger())
	require.NoError(t, err)

	report := sampleReport()
	reminders := &stubReminders{report: report}
	h := NewReminderSweepHandler(reminders, archive, discardLogger())

	payload, _ := json.Marshal(worker.ReminderSweepPayload{TriggeredBy: "cron"})
	require.NoError(t, h.Handle(context.Background(), payload))
	assert.Equal(t, 1, reminders.calls)

	rc, _, err := archive.Get(context.Background(), storage.ReportKey(report.RunID))
	require.NoError(t, err)
	defer rc.Close()

	var stored domain.SweepReport
	require.NoError(t, json.NewDecoder(rc).Decode(&stored))
	assert.Equal(t, report.RunID, stored.RunID)
	assert.Equal(t, 1, stored.Failed)
	require.Len(t, stored.Failures, 1)
	assert.Equal(t, "mailbox full", stored.Failures[0].Error)
}

func TestReminderSweepHandler_ArchiveFailureIsNotFatal(t *testing.T) {
	h := NewReminderSweepHandler(&stubReminders{report: sampleReport()}, brokenStorage{}, discardLogger())

	report, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
}

func TestReminderSweepHandler_NoArchive(t *testing.T) {
	h := NewReminderSweepHandler(&stubReminders{report: sampleReport()}, nil, discardLogger())
	assert.NoError(t, h.Handle(context.Background(), nil))
}

func TestReminderSweepHandler_SweepFailureIsPermanent(t *testing.T) {
	queryErr := domain.Internal(errors.New("relation does not exist"), "ReminderService.Sweep", "Failed to query stale subscriptions")
	h := NewReminderSweepHandler(&stubReminders{err: queryErr}, nil, discardLogger())

	err := h.Handle(context.Background(), []byte(`{"triggered_by":"cron"}`))
	require.Error(t, err)
	assert.True(t, worker.IsPermanent(err))
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
}

func TestReminderSweepHandler_InvalidPayload(t *testing.T) {
	reminders := &stubReminders{report: sampleReport()}
	h := NewReminderSweepHandler(reminders, nil, discardLogger())

	err := h.Handle(context.Background(), []byte(`{not json`))
	assert.True(t, worker.IsPermanent(err))
	assert.Zero(t, reminders.calls)
}
