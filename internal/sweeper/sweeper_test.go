package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guide-booking/api"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
	panic bool
}

func (r *countingRunner) RunSweep(ctx context.Context) (*api.SweepReport, error) {
	n := r.calls.Add(1)
	if r.panic && n == 1 {
		panic("sweep exploded")
	}
	if r.err != nil {
		return nil, r.err
	}
	return &api.SweepReport{}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweeperRunsRepeatedly(t *testing.T) {
	runner := &countingRunner{}
	s := New(discard(), runner, 10*time.Millisecond, 0)

	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())

	after := runner.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runner.calls.Load())
}

func TestSweeperWaitsForInitialDelay(t *testing.T) {
	runner := &countingRunner{}
	s := New(discard(), runner, time.Hour, time.Hour)

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Stop())

	assert.Zero(t, runner.calls.Load())
}

func TestSweeperSurvivesFailures(t *testing.T) {
	runner := &countingRunner{err: errors.New("db down"), panic: true}
	s := New(discard(), runner, 10*time.Millisecond, 0)

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return runner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
}

func TestSweeperStartStopErrors(t *testing.T) {
	s := New(discard(), &countingRunner{}, time.Hour, time.Hour)

	assert.ErrorIs(t, s.Stop(), ErrNotRunning)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)
	require.NoError(t, s.Stop())
}

func TestSweeperStopsWithContext(t *testing.T) {
	runner := &countingRunner{}
	s := New(discard(), runner, 10*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	assert.Eventually(t, func() bool { return runner.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, s.Stop())
}
