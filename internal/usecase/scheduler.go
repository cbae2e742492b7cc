package usecase

import (
	"context"
	"log/slog"
	"time"

	"ArticleRelay/internal/ports"
)

// Scheduler wires the ticking driver with the feed watcher.
type Scheduler struct {
	driver  ports.Scheduler
	watcher *FeedWatcher
	logger  *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring feed polls.
func NewScheduler(driver ports.Scheduler, watcher *FeedWatcher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, watcher: watcher, logger: logger}
}

// Start registers the feed poll with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.watcher == nil || len(s.watcher.feeds) == 0 {
		return nil
	}

	job := func(trigger time.Time) {
		ran, err := s.watcher.Poll(ctx)
		if err != nil {
			s.logger.Warn("feed poll finished with errors", "trigger", trigger, "ingested", ran, "error", err)
			return
		}
		s.logger.Info("feed poll finished", "trigger", trigger, "ingested", ran)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
