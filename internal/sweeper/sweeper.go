// Package sweeper runs the booking sweep on a fixed interval in the
// background.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"guide-booking/api"
	"guide-booking/pkg/sl"
)

var (
	ErrAlreadyRunning = errors.New("sweeper already running")
	ErrNotRunning     = errors.New("sweeper not running")
)

type Runner interface {
	RunSweep(ctx context.Context) (*api.SweepReport, error)
}

type Sweeper struct {
	log          *slog.Logger
	runner       Runner
	interval     time.Duration
	initialDelay time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(log *slog.Logger, runner Runner, interval, initialDelay time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if initialDelay < 0 {
		initialDelay = 0
	}

	return &Sweeper{
		log:          log.With(slog.String("component", "sweeper")),
		runner:       runner,
		interval:     interval,
		initialDelay: initialDelay,
	}
}

// Start launches the loop. The first sweep runs after the initial delay,
// then once per interval until Stop or ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.log.Info("sweeper started",
		slog.String("interval", s.interval.String()),
		slog.String("initial_delay", s.initialDelay.String()),
	)

	s.wg.Add(1)
	go s.runLoop(ctx)

	return nil
}

// Stop cancels the loop and waits for an in-flight sweep to return.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.log.Info("sweeper stopped")

	return nil
}

func (s *Sweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	delay := time.NewTimer(s.initialDelay)
	defer delay.Stop()

	select {
	case <-ctx.Done():
		return
	case <-delay.C:
	}

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce keeps a failed or panicking sweep from ending the loop.
func (s *Sweeper) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("sweep panicked", sl.Err(fmt.Errorf("panic: %v", r)))
		}
	}()

	started := time.Now()

	report, err := s.runner.RunSweep(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error("sweep failed", sl.Err(err))
		return
	}

	s.log.Debug("sweep run complete",
		slog.Int("examined", report.Examined),
		slog.Int("failed", report.Failed),
		slog.String("duration", time.Since(started).String()),
	)
}
