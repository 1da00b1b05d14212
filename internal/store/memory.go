package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/testcraft-academy/courseflow/internal/domain"
)

// Memory is an in-process subscription store with the same uniqueness rules
// as the subscriptions table: one row per (email, course) and one row per
// outstanding token.
type Memory struct {
	mu     sync.RWMutex
	rows   map[pairKey]*domain.Subscription
	tokens map[string]pairKey
	now    func() time.Time
}

type pairKey struct {
	email    string
	courseID string
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock sets the time source used to stamp CreatedAt and ConfirmedAt.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates an empty store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		rows:   make(map[pairKey]*domain.Subscription),
		tokens: make(map[string]pairKey),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FindByEmailAndCourse returns a copy of the record for the pair.
func (m *Memory) FindByEmailAndCourse(ctx context.Context, email, courseID string) (*domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.rows[pairKey{email, courseID}]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	out := *row
	return &out, nil
}

// Insert stores a new record, assigning ID and CreatedAt.
func (m *Memory) Insert(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey{sub.Email, sub.CourseID}
	if _, exists := m.rows[key]; exists {
		return nil, domain.ErrDuplicateSubscription
	}
	if sub.ConfirmationToken != "" {
		if _, exists := m.tokens[sub.ConfirmationToken]; exists {
			return nil, domain.ErrDuplicateSubscription
		}
	}

	row := *sub
	row.ID = uuid.New()
	row.IsConfirmed = false
	row.ConfirmedAt = nil
	row.CreatedAt = m.now()

	m.rows[key] = &row
	if row.ConfirmationToken != "" {
		m.tokens[row.ConfirmationToken] = key
	}

	out := row
	return &out, nil
}

// FindByToken returns the pending record matching all three values.
func (m *Memory) FindByToken(ctx context.Context, email, courseID, token string) (*domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, domain.ErrSubscriptionNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	key, ok := m.tokens[token]
	if !ok || key != (pairKey{email, courseID}) {
		return nil, domain.ErrSubscriptionNotFound
	}
	row := m.rows[key]
	if row.IsConfirmed {
		return nil, domain.ErrSubscriptionNotFound
	}
	out := *row
	return &out, nil
}

// Confirm flips a pending record to confirmed and clears its token.
func (m *Memory) Confirm(ctx context.Context, email, courseID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[pairKey{email, courseID}]
	if !ok || row.IsConfirmed {
		return domain.ErrSubscriptionNotFound
	}

	now := m.now()
	delete(m.tokens, row.ConfirmationToken)
	row.ConfirmationToken = ""
	row.IsConfirmed = true
	row.ConfirmedAt = &now
	return nil
}

// FindStaleUnconfirmed lists pending records created before olderThan,
// ordered by CreatedAt then ID to match the SQL query.
func (m *Memory) FindStaleUnconfirmed(ctx context.Context, olderThan time.Time) ([]domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Subscription
	for _, row := range m.rows {
		if row.IsPending() && row.CreatedAt.Before(olderThan) {
			out = append(out, *row)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}
