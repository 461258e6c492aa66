// Package scheduler runs the scraping pipeline on a daily schedule and on
// demand, and makes sure only one run is in progress at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/giygas/medcodes-scraper/codesparser/entities"
	"github.com/giygas/medcodes-scraper/interfaces"
	"github.com/giygas/medcodes-scraper/logging"
	"github.com/go-co-op/gocron"
)

// ErrRunInProgress is returned by TriggerRun while another run is in progress
var ErrRunInProgress = errors.New("run already in progress")

const (
	// DefaultScheduleTimes runs the pipeline once a day
	DefaultScheduleTimes = "06:00"
	// RunTimeout bounds scheduled runs
	RunTimeout = 15 * time.Minute
	// staleAfter is the artifact age that triggers a warning
	staleAfter = 25 * time.Hour
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Options configures the schedule
type Options struct {
	Times      string // gocron At() expression, e.g. "06:00;18:00"
	RunOnStart bool
}

// Scheduler handles scheduled runs and staleness monitoring using dependency injection
type Scheduler struct {
	runStore  interfaces.RunStore
	runner    interfaces.Runner
	scheduler *gocron.Scheduler
	options   Options

	stop     chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(runStore interfaces.RunStore, runner interfaces.Runner, options Options) *Scheduler {
	if options.Times == "" {
		options.Times = DefaultScheduleTimes
	}
	return &Scheduler{
		runStore:  runStore,
		runner:    runner,
		scheduler: gocron.NewScheduler(time.Local),
		options:   options,
		stop:      make(chan struct{}),
	}
}

// Start schedules the daily runs and the staleness monitoring. With
// RunOnStart a first run is started in the background.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(1).Days().At(s.options.Times).Do(s.runScheduled)
	if err != nil {
		logging.Error("Failed to schedule runs", "times", s.options.Times, "error", err)
		return fmt.Errorf("failed to schedule runs: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Scheduler started", "times", s.options.Times, "next_run", s.NextRun().Format(time.RFC3339))

	if s.options.RunOnStart {
		go s.runScheduled()
	}

	s.startHealthMonitoring()

	return nil
}

// Stop stops the scheduler. A run in progress is not interrupted.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.stopOnce.Do(func() { close(s.stop) })
}

// NextRun returns the time of the next scheduled run, zero before Start
func (s *Scheduler) NextRun() time.Time {
	_, next := s.scheduler.NextRun()
	return next
}

// TriggerRun runs the pipeline now and records its outcome.
// It returns ErrRunInProgress without running when another run is in progress.
func (s *Scheduler) TriggerRun(ctx context.Context) (*entities.RunResult, error) {
	// Prevent concurrent runs
	if !s.runStore.BeginRun() {
		logging.Info("Run already in progress, skipping...")
		return nil, ErrRunInProgress
	}
	defer s.runStore.EndRun()

	result, err := s.runner.Run(ctx)
	if err != nil {
		s.runStore.RecordFailure(err)
		return nil, err
	}

	s.runStore.RecordSuccess(result)
	return result, nil
}

func (s *Scheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), RunTimeout)
	defer cancel()

	if _, err := s.TriggerRun(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
		logging.Error("Scheduled run failed", "error", err)
	}
}

// startHealthMonitoring warns when no run has succeeded for too long
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				lastSuccess := s.runStore.GetLastSuccess()
				if lastSuccess.IsZero() {
					lastSuccess = s.runStore.GetServerStartTime()
				}
				if time.Since(lastSuccess) > staleAfter {
					logging.Warn("Artifacts haven't been refreshed in over 25 hours", "last_success", lastSuccess)
				}
			}
		}
	}()
}
