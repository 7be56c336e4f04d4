package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/gamehost/internal/metrics"
	"github.com/edvin/gamehost/internal/model"
)

const DefaultSchedulerTick = time.Minute

// Scheduler is the single control loop that triggers automatic backups.
// Each tick it collects due schedules, creates one automatic backup per
// due server, advances the schedule and enforces retention. One bad
// schedule never aborts the rest of the tick.
type Scheduler struct {
	registry  Registry
	orch      *Orchestrator
	retention *RetentionEnforcer
	tick      time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

func NewScheduler(registry Registry, orch *Orchestrator, retention *RetentionEnforcer, tick time.Duration, logger zerolog.Logger) *Scheduler {
	if tick <= 0 {
		tick = DefaultSchedulerTick
	}
	return &Scheduler{
		registry:  registry,
		orch:      orch,
		retention: retention,
		tick:      tick,
		now:       time.Now,
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// Run loops until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().Dur("tick", s.tick).Msg("scheduler started")

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context) {
	now := s.now()
	due, err := s.registry.ListDueSchedules(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("list due schedules")
		return
	}

	for _, schedule := range due {
		if err := s.runSchedule(ctx, &schedule, now); err != nil {
			metrics.ScheduledRunsTotal.WithLabelValues("error").Inc()
			s.logger.Error().Err(err).Str("server_id", schedule.ServerID).Msg("scheduled backup")
		}
	}
}

// runSchedule handles one due schedule at tick time now. On a single-
// flight conflict the run is skipped but next_run_at still advances by the
// full interval from now, so a long-running manual backup does not cause
// back-to-back retries.
func (s *Scheduler) runSchedule(ctx context.Context, schedule *model.Schedule, now time.Time) error {
	next := now.Add(time.Duration(schedule.IntervalHours) * time.Hour)

	_, err := s.orch.Create(ctx, CreateParams{
		ServerID:    schedule.ServerID,
		TenantID:    schedule.TenantID,
		Name:        "auto-" + now.UTC().Format("20060102-1504"),
		IsAutomatic: true,
	})

	var conflict *ConflictError
	if errors.As(err, &conflict) {
		metrics.ScheduledRunsTotal.WithLabelValues("skipped").Inc()
		s.logger.Info().Str("server_id", schedule.ServerID).Msg("scheduled run skipped, backup already in flight")
		if err := s.registry.AdvanceSchedule(ctx, schedule.ServerID, nil, next); err != nil {
			return fmt.Errorf("advance schedule after skip: %w", err)
		}
		return nil
	}
	if err != nil {
		// Leave next_run_at untouched; the next tick retries.
		return fmt.Errorf("create automatic backup: %w", err)
	}

	metrics.ScheduledRunsTotal.WithLabelValues("started").Inc()
	if err := s.registry.AdvanceSchedule(ctx, schedule.ServerID, &now, next); err != nil {
		return fmt.Errorf("advance schedule: %w", err)
	}

	if err := s.retention.Enforce(ctx, schedule.ServerID, schedule.TenantID, schedule.RetentionCount); err != nil {
		return fmt.Errorf("enforce retention: %w", err)
	}
	return nil
}
