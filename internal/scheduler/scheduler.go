package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"solar-sync-backend/config"
	"solar-sync-backend/internal/syncer"
)

// Runner runs one sync over the configured sites.
type Runner interface {
	SyncAll(ctx context.Context, full bool, siteFilter []int64) (*syncer.SyncSummary, error)
}

// Service runs periodic syncs in serve mode.
type Service struct {
	cfg    config.SchedulerConfig
	runner Runner
}

// NewService creates the scheduler.
func NewService(cfg config.SchedulerConfig, runner Runner) *Service {
	return &Service{cfg: cfg, runner: runner}
}

// Run syncs once immediately, then on the configured cron schedule until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	if !s.cfg.Enabled {
		log.Println("Scheduler is disabled. Not starting.")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.SyncOnce(ctx, false) }); err != nil {
		return fmt.Errorf("%w: invalid scheduler.schedule %q: %v", config.ErrInvalid, s.cfg.Schedule, err)
	}

	log.Printf("Starting scheduler (%s)...", s.cfg.Schedule)

	s.SyncOnce(ctx, s.cfg.FullOnStart)

	c.Start()
	<-ctx.Done()
	log.Println("Scheduler shutting down.")
	<-c.Stop().Done()
	return nil
}

// SyncOnce runs one sync. A run that overlaps a manual trigger is skipped.
func (s *Service) SyncOnce(ctx context.Context, full bool) {
	if ctx.Err() != nil {
		return
	}
	log.Println("Executing scheduled sync...")

	summary, err := s.runner.SyncAll(ctx, full, nil)
	switch {
	case errors.Is(err, syncer.ErrSyncInProgress):
		log.Println("Sync already in progress, skipping scheduled run.")
	case err != nil:
		log.Printf("Error: scheduled sync failed: %v", err)
	default:
		log.Printf("Scheduled sync %s finished: %d/%d sites successful", summary.RunID, summary.SuccessfulSites, summary.TotalSites)
	}
}
