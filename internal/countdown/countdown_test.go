package countdown

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(clock *testClock, d time.Duration) *Service {
	return NewService(NewMemoryStore(clock.Now), d, discardLogger(), WithClock(clock.Now))
}

func TestDeadline_PersistsAcrossCalls(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(clock, time.Hour)
	ctx := context.Background()

	first, err := svc.Deadline(ctx, "visitor-1")
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(time.Hour), first.Deadline)
	assert.Equal(t, time.Hour, first.Remaining)
	assert.False(t, first.Expired)

	clock.Advance(20 * time.Minute)

	second, err := svc.Deadline(ctx, "visitor-1")
	require.NoError(t, err)
	assert.Equal(t, first.Deadline, second.Deadline, "reload must not reset the timer")
	assert.Equal(t, 40*time.Minute, second.Remaining)
	assert.Equal(t, int64(2400), second.RemainingSeconds())
}

func TestDeadline_VisitorsAreIndependent(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(clock, time.Hour)
	ctx := context.Background()

	a, err := svc.Deadline(ctx, "a")
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)
	b, err := svc.Deadline(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, b.Deadline.Sub(a.Deadline))
}

func TestDeadline_ExpiredNeverNegative(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(clock, time.Hour)
	ctx := context.Background()

	_, err := svc.Deadline(ctx, "v")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	atDeadline, err := svc.Deadline(ctx, "v")
	require.NoError(t, err)
	assert.True(t, atDeadline.Expired)
	assert.Zero(t, atDeadline.Remaining)

	clock.Advance(48 * time.Hour)
	later, err := svc.Deadline(ctx, "v")
	require.NoError(t, err)
	assert.True(t, later.Expired)
	assert.Zero(t, later.Remaining)
	assert.Equal(t, atDeadline.Deadline, later.Deadline)
}

func TestDeadline_RestartsAfterRetention(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(clock, time.Hour)
	ctx := context.Background()

	first, err := svc.Deadline(ctx, "v")
	require.NoError(t, err)

	clock.Advance(time.Hour + retention)
	fresh, err := svc.Deadline(ctx, "v")
	require.NoError(t, err)
	assert.False(t, fresh.Expired)
	assert.True(t, fresh.Deadline.After(first.Deadline))
}

func TestDeadline_EmptyKey(t *testing.T) {
	svc := newTestService(&testClock{now: time.Now()}, time.Hour)
	_, err := svc.Deadline(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, f.err
}

func (f failingStore) SetIfAbsent(context.Context, string, time.Time, time.Duration) (time.Time, error) {
	return time.Time{}, f.err
}

func TestDeadline_StoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	svc := NewService(failingStore{err: storeErr}, time.Hour, discardLogger())

	_, err := svc.Deadline(context.Background(), "v")
	assert.ErrorIs(t, err, storeErr)
}

func TestNewService_DefaultDuration(t *testing.T) {
	svc := NewService(NewMemoryStore(nil), 0, discardLogger())
	assert.Equal(t, DefaultDuration, svc.duration)
}

func TestMemoryStore_SetIfAbsentKeepsFirst(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(clock.Now)
	ctx := context.Background()

	first := clock.now.Add(time.Hour)
	got, err := store.SetIfAbsent(ctx, "k", first, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	got, err = store.SetIfAbsent(ctx, "k", first.Add(time.Hour), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	clock.Advance(time.Hour)
	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found, "entry expires with its TTL")
}

func TestDeadlineEncoding(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 15, 250*int(time.Millisecond), time.UTC)

	decoded, err := decodeDeadline(encodeDeadline(at))
	require.NoError(t, err)
	assert.True(t, at.Equal(decoded))

	_, err = decodeDeadline("not-a-number")
	assert.Error(t, err)
}

// TestRedisStore runs against a real server when TEST_REDIS_URL is set.
func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client)
	key := uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, keyPrefix+key) })

	_, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	deadline := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	got, err := store.SetIfAbsent(ctx, key, deadline, time.Minute)
	require.NoError(t, err)
	assert.True(t, deadline.Equal(got))

	got, err = store.SetIfAbsent(ctx, key, deadline.Add(time.Hour), time.Minute)
	require.NoError(t, err)
	assert.True(t, deadline.Equal(got))

	stored, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, deadline.Equal(stored))
}
