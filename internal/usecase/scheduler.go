package usecase

import (
	"context"
	"log/slog"
	"time"

	"SubredditOfTheDay/internal/ports"
)

// RunFunc performs one complete run at the trigger time.
type RunFunc func(ctx context.Context, trigger time.Time) error

// Scheduler repeats a run on a driver until the context ends or a run fails
// fatally.
type Scheduler struct {
	driver ports.Scheduler
	run    RunFunc
	logger *slog.Logger
}

// NewScheduler returns a helper to start and stop recurring runs.
func NewScheduler(driver ports.Scheduler, run RunFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, run: run, logger: logger}
}

// Serve blocks until ctx is cancelled or a run returns a fatal error, which
// is then returned. Non-fatal run errors are logged.
func (s *Scheduler) Serve(ctx context.Context) error {
	if s.driver == nil || s.run == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fatalErr := make(chan error, 1)
	job := func(trigger time.Time) {
		if ctx.Err() != nil {
			return
		}
		err := s.run(ctx, trigger)
		if err == nil {
			return
		}
		if fatal(err) {
			select {
			case fatalErr <- err:
			default:
			}
			cancel()
			return
		}
		s.logger.Error("run failed", "error", err)
	}

	if err := s.driver.Start(ctx, job); err != nil {
		return err
	}

	var result error
	select {
	case <-ctx.Done():
	case result = <-fatalErr:
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Minute)
	defer stopCancel()
	if err := s.driver.Stop(stopCtx); err != nil {
		s.logger.Warn("scheduler stop", "error", err)
	}

	if result == nil {
		select {
		case result = <-fatalErr:
		default:
		}
	}
	return result
}
