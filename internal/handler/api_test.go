package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testcraft-academy/courseflow/internal/countdown"
	"github.com/testcraft-academy/courseflow/internal/domain"
	"github.com/testcraft-academy/courseflow/internal/repository"
	"github.com/testcraft-academy/courseflow/internal/storage"
	"github.com/testcraft-academy/courseflow/internal/worker"
)

// =============================================================================
// GET /api/courses
// =============================================================================

func TestCourseSearch(t *testing.T) {
	tests := []struct {
		query   string
		wantIDs []string
	}{
		{query: "", wantIDs: []string{"playwright-mastery", "selenium-java", "cypress-fundamentals", "api-testing-postman", "restassured-api", "k6-performance", "ci-test-pipelines"}},
		{query: "JAVA", wantIDs: []string{"selenium-java", "cypress-fundamentals", "restassured-api"}},
		{query: "k6", wantIDs: []string{"k6-performance"}},
		{query: "cobol", wantIDs: []string{}},
	}

	mux := http.NewServeMux()
	NewCourseHandler(domain.DefaultCatalog(), discardLogger()).RegisterRoutes(mux)

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/courses?q="+tt.query, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var resp CourseListResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, len(tt.wantIDs), resp.Count)

			ids := make([]string, 0, len(resp.Courses))
			for _, c := range resp.Courses {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestCourseSearch_EmptyResultIsArray(t *testing.T) {
	mux := http.NewServeMux()
	NewCourseHandler(domain.DefaultCatalog(), discardLogger()).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/courses?q=zzz", nil))
	assert.Contains(t, rec.Body.String(), `"courses":[]`)
}

// =============================================================================
// GET /api/countdown
// =============================================================================

func TestCountdown_PersistsAcrossRequests(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := countdown.NewService(countdown.NewMemoryStore(clock), 2*time.Hour, discardLogger(), countdown.WithClock(clock))

	mux := http.NewServeMux()
	NewCountdownHandler(svc, discardLogger(), true).RegisterRoutes(mux)

	// First visit assigns a visitor cookie.
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/countdown", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var visitor *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == VisitorCookieName {
			visitor = c
		}
	}
	require.NotNil(t, visitor)
	assert.True(t, visitor.HttpOnly)
	assert.True(t, visitor.Secure)
	_, err := uuid.Parse(visitor.Value)
	require.NoError(t, err)

	var first CountdownResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))
	assert.Equal(t, now.Add(2*time.Hour), first.Deadline)
	assert.Equal(t, int64(7200), first.RemainingSeconds)
	assert.False(t, first.Expired)

	// A reload 90 minutes later sees the same deadline.
	now = now.Add(90 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/api/countdown", nil)
	req.AddCookie(visitor)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var second CountdownResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))
	assert.Equal(t, first.Deadline, second.Deadline)
	assert.Equal(t, int64(1800), second.RemainingSeconds)
	assert.Empty(t, rec.Result().Cookies(), "existing visitor keeps its cookie")

	// Past the deadline it reports expired rather than restarting.
	now = now.Add(time.Hour)
	req = httptest.NewRequest(http.MethodGet, "/api/countdown", nil)
	req.AddCookie(visitor)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var third CountdownResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&third))
	assert.True(t, third.Expired)
	assert.Zero(t, third.RemainingSeconds)
	assert.Equal(t, first.Deadline, third.Deadline)
}

func TestCountdown_ReplacesMalformedCookie(t *testing.T) {
	svc := countdown.NewService(countdown.NewMemoryStore(time.Now), 0, discardLogger())
	mux := http.NewServeMux()
	NewCountdownHandler(svc, discardLogger(), false).RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/countdown", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookieName, Value: "../../etc"})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.NotEqual(t, "../../etc", rec.Result().Cookies()[0].Value)
}

type failingResolver struct{}

func (failingResolver) Deadline(context.Context, string) (countdown.Status, error) {
	return countdown.Status{}, errors.New("redis: connection pool timeout")
}

func TestCountdown_StoreFailure(t *testing.T) {
	mux := http.NewServeMux()
	NewCountdownHandler(failingResolver{}, discardLogger(), false).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/countdown", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "redis")
}

// =============================================================================
// POST /cron/reminder-sweep
// =============================================================================

type fakeEnqueuer struct {
	mu     sync.Mutex
	params []repository.EnqueueJobParams
	err    error
}

func (f *fakeEnqueuer) EnqueueJob(_ context.Context, arg repository.EnqueueJobParams) (repository.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return repository.Job{}, f.err
	}
	f.params = append(f.params, arg)
	return repository.Job{ID: uuid.New(), JobType: arg.JobType, ScheduledAt: arg.ScheduledAt}, nil
}

func passThrough(next http.Handler) http.Handler { return next }

func TestCronReminderSweep(t *testing.T) {
	q := &fakeEnqueuer{}
	mux := http.NewServeMux()
	NewCronHandler(q, nil, discardLogger()).RegisterRoutes(mux, passThrough)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cron/reminder-sweep?source=github-actions", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp EnqueueResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, worker.JobTypeReminderSweep, resp.JobType)
	assert.NotEmpty(t, resp.JobID)

	require.Len(t, q.params, 1)
	var payload worker.ReminderSweepPayload
	require.NoError(t, json.Unmarshal(q.params[0].Payload, &payload))
	assert.Equal(t, "github-actions", payload.TriggeredBy)
	assert.Equal(t, int32(1), q.params[0].MaxAttempts)
}

func TestCronReminderSweep_EnqueueFailure(t *testing.T) {
	q := &fakeEnqueuer{err: errors.New("pq: too many connections")}
	mux := http.NewServeMux()
	NewCronHandler(q, nil, discardLogger()).RegisterRoutes(mux, passThrough)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cron/reminder-sweep", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "too many connections")
}

func TestCronReminderSweep_RequiresAuth(t *testing.T) {
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	q := &fakeEnqueuer{}
	mux := http.NewServeMux()
	NewCronHandler(q, nil, discardLogger()).RegisterRoutes(mux, deny)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cron/reminder-sweep", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, q.params)
}

func TestCronSweepReport(t *testing.T) {
	archive, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()}, discardLogger())
	require.NoError(t, err)

	runID := ulid.Make().String()
	require.NoError(t, storage.PutJSON(context.Background(), archive, storage.ReportKey(runID), domain.SweepReport{
		RunID:  runID,
		Total:  3,
		Sent:   2,
		Failed: 1,
	}))

	mux := http.NewServeMux()
	NewCronHandler(&fakeEnqueuer{}, archive, discardLogger()).RegisterRoutes(mux, passThrough)

	t.Run("archived report", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cron/reminder-sweep/"+runID, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var report domain.SweepReport
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
		assert.Equal(t, runID, report.RunID)
		assert.Equal(t, 2, report.Sent)
	})

	t.Run("unknown run", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cron/reminder-sweep/"+ulid.Make().String(), nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed run id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cron/reminder-sweep/not-a-run-id", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCronSweepReport_ArchiveDisabled(t *testing.T) {
	mux := http.NewServeMux()
	NewCronHandler(&fakeEnqueuer{}, nil, discardLogger()).RegisterRoutes(mux, passThrough)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cron/reminder-sweep/"+ulid.Make().String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// GET /health
// =============================================================================

type pingerFunc func(context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
	}{
		{name: "no database", db: nil, wantStatus: http.StatusOK},
		{name: "database up", db: pingerFunc(func(context.Context) error { return nil }), wantStatus: http.StatusOK},
		{name: "database down", db: pingerFunc(func(context.Context) error { return errors.New("down") }), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			NewHealthHandler(tt.db, discardLogger()).RegisterRoutes(mux)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
