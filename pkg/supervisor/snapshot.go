package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSnapshotSchedule saves all supervisors every five minutes.
const DefaultSnapshotSchedule = "@every 5m"

// Snapshotter saves every registered supervisor on a cron schedule.
type Snapshotter struct {
	registry *Registry
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewSnapshotter creates a snapshotter. An empty schedule disables periodic
// saves; Stop still performs the final save.
func NewSnapshotter(registry *Registry, schedule string) *Snapshotter {
	return &Snapshotter{
		registry: registry,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "supervisor.snapshot"),
	}
}

// ValidateSchedule checks a snapshot schedule expression.
//
// Standard five-field cron expressions and descriptors are accepted:
//   - "@every 5m"   - every five minutes
//   - "0 * * * *"   - hourly
//   - "@daily"      - once a day at midnight
func ValidateSchedule(schedule string) error {
	if schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// Start schedules periodic saves. Jobs use ctx for their store calls.
func (s *Snapshotter) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("snapshot schedule not configured, skipping scheduler")
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.Run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule snapshots: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("snapshot scheduler started", "schedule", s.schedule)
	return nil
}

// Run saves all supervisors once.
func (s *Snapshotter) Run(ctx context.Context) {
	start := time.Now()
	saved, err := s.registry.SaveAll(ctx)
	if err != nil {
		s.logger.Error("snapshot failed", "saved", saved, "error", err)
		return
	}
	s.logger.Debug("snapshot completed", "saved", saved, "duration", time.Since(start))
}

// Stop stops the schedule, waits for a running snapshot and then saves all
// supervisors one last time with ctx.
func (s *Snapshotter) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
	}
	s.mu.Unlock()

	s.Run(ctx)
	s.logger.Info("snapshot scheduler stopped")
}

// NextRun returns the next scheduled snapshot time, or nil.
func (s *Snapshotter) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
