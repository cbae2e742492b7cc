package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ArticleRelay/internal/ports"
)

// CronScheduler fires a job on a cron expression (standard five fields or
// descriptors such as "@hourly"). Overlapping runs are skipped.
type CronScheduler struct {
	schedule string
	location *time.Location

	mu sync.Mutex
	c  *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler validates schedule and builds a scheduler for it.
func NewCronScheduler(schedule string, location *time.Location) (*CronScheduler, error) {
	if location == nil {
		location = time.Local
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return &CronScheduler{schedule: schedule, location: location}, nil
}

// Start registers job and starts the cron loop; a second Start is a no-op.
// Unlike Ticker it does not run the job immediately.
func (s *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(s.schedule, func() { job(time.Now()) }); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.c = c
	c.Start()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.c == c {
			s.c = nil
		}
		s.mu.Unlock()
		c.Stop()
	}()
	return nil
}

// Stop halts the cron loop and waits for a running job until ctx expires.
func (s *CronScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
