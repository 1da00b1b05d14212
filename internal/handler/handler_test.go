package handler

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/testcraft-academy/courseflow/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(RendererConfig{Logger: discardLogger()})
	require.NoError(t, err)
	return r
}

// stubSubscriptions records calls and returns canned results.
type stubSubscriptions struct {
	subscribeResult *domain.SubscribeResult
	subscribeErr    error
	confirmResult   *domain.ConfirmResult
	confirmErr      error

	subscribed []domain.SubscribeParams
	confirmed  []domain.ConfirmParams
}

func (s *stubSubscriptions) Subscribe(_ context.Context, params domain.SubscribeParams) (*domain.SubscribeResult, error) {
	s.subscribed = append(s.subscribed, params)
	return s.subscribeResult, s.subscribeErr
}

func (s *stubSubscriptions) Confirm(_ context.Context, params domain.ConfirmParams) (*domain.ConfirmResult, error) {
	s.confirmed = append(s.confirmed, params)
	return s.confirmResult, s.confirmErr
}
