package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockExpirer struct {
	mock.Mock
}

func (m *mockExpirer) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweeper_RunOnce(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		assignments := &mockExpirer{}
		shares := &mockExpirer{}
		s := NewSweeper(time.Minute, assignments, shares, testLogger())
		s.now = func() time.Time { return fixed }

		assignments.On("ExpireDue", mock.Anything, fixed).Return(2, nil).Once()
		shares.On("ExpireDue", mock.Anything, fixed).Return(3, nil).Once()

		result, err := s.RunOnce(context.Background())

		require.NoError(t, err)
		assert.Equal(t, Result{ExpiredAssignments: 2, ExpiredShares: 3}, result)
		assignments.AssertExpectations(t)
		shares.AssertExpectations(t)
	})

	t.Run("AssignmentFailureStillSweepsShares", func(t *testing.T) {
		assignments := &mockExpirer{}
		shares := &mockExpirer{}
		s := NewSweeper(time.Minute, assignments, shares, testLogger())
		s.now = func() time.Time { return fixed }
		sweepErr := errors.New("db down")

		assignments.On("ExpireDue", mock.Anything, fixed).Return(0, sweepErr).Once()
		shares.On("ExpireDue", mock.Anything, fixed).Return(1, nil).Once()

		result, err := s.RunOnce(context.Background())

		assert.ErrorIs(t, err, sweepErr)
		assert.Equal(t, 1, result.ExpiredShares)
		shares.AssertExpectations(t)
	})

	t.Run("NilExpirersAreSkipped", func(t *testing.T) {
		s := NewSweeper(time.Minute, nil, nil, testLogger())

		result, err := s.RunOnce(context.Background())

		require.NoError(t, err)
		assert.Equal(t, Result{}, result)
	})
}

func TestSweeper_Start(t *testing.T) {
	assignments := &mockExpirer{}
	s := NewSweeper(5*time.Millisecond, assignments, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	swept := make(chan struct{}, 1)
	assignments.On("ExpireDue", mock.Anything, mock.Anything).Return(0, nil).Run(func(mock.Arguments) {
		select {
		case swept <- struct{}{}:
		default:
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	select {
	case <-swept:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not tick")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
