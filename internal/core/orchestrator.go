package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/gamehost/internal/artifact"
	"github.com/edvin/gamehost/internal/cluster"
	"github.com/edvin/gamehost/internal/events"
	"github.com/edvin/gamehost/internal/metrics"
	"github.com/edvin/gamehost/internal/model"
	"github.com/edvin/gamehost/internal/platform"
)

const DefaultStopTimeout = 30 * time.Second

// CreateParams is one backup request.
type CreateParams struct {
	ServerID    string
	TenantID    string
	Name        string
	Description string
	Tags        []string
	IsAutomatic bool
}

// Orchestrator owns the backup state machine. Create returns as soon as
// the pending record exists; completion is driven by a supervised
// goroutine per backup, never serialized across servers.
type Orchestrator struct {
	registry    Registry
	runner      Runner
	platform    cluster.Orchestrator
	artifacts   artifact.Store
	events      events.Publisher
	logger      zerolog.Logger
	stopTimeout time.Duration

	wg sync.WaitGroup
}

func NewOrchestrator(registry Registry, runner Runner, platform cluster.Orchestrator, artifacts artifact.Store, sink events.Publisher, stopTimeout time.Duration, logger zerolog.Logger) *Orchestrator {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Orchestrator{
		registry:    registry,
		runner:      runner,
		platform:    platform,
		artifacts:   artifacts,
		events:      sink,
		stopTimeout: stopTimeout,
		logger:      logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Create validates the request, inserts a pending record and returns it.
// The caller must not block on completion; the record moves through
// in_progress to completed or failed asynchronously.
func (o *Orchestrator) Create(ctx context.Context, p CreateParams) (*model.Backup, error) {
	if p.ServerID == "" {
		return nil, NewValidationError("server id is required")
	}
	if p.TenantID == "" {
		return nil, NewValidationError("tenant id is required")
	}

	backup := &model.Backup{
		ID:          platform.NewID(),
		ServerID:    p.ServerID,
		TenantID:    p.TenantID,
		Name:        p.Name,
		Description: p.Description,
		Tags:        p.Tags,
		Status:      model.StatusPending,
		IsAutomatic: p.IsAutomatic,
		StartedAt:   time.Now(),
	}

	if err := o.registry.Insert(ctx, backup); err != nil {
		return nil, err
	}
	metrics.BackupsInFlight.Inc()

	// The goroutine gets its own copy; the caller's record stays frozen
	// at pending and is never written again.
	o.wg.Add(1)
	go o.execute(copyBackup(backup))

	return backup, nil
}

// Wait blocks until all in-flight backup goroutines have finished. Called
// on shutdown after the HTTP server and scheduler have stopped.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// execute drives one backup to a terminal state. It runs detached from the
// request context and is guaranteed to leave the record terminal: any
// panic or unexpected error is converted into a failed transition.
func (o *Orchestrator) execute(backup *model.Backup) {
	defer o.wg.Done()
	defer metrics.BackupsInFlight.Dec()

	ctx := context.Background()
	log := o.logger.With().Str("backup_id", backup.ID).Str("server_id", backup.ServerID).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("backup job panicked")
			o.finish(ctx, backup, nil, fmt.Errorf("backup job panicked: %v", r))
		}
	}()

	if err := o.registry.UpdateStatus(ctx, backup.ID, StatusUpdate{Status: model.StatusInProgress}); err != nil {
		// Lost the race against a concurrent terminal write; nothing to run.
		log.Warn().Err(err).Msg("backup not started")
		return
	}
	backup.Status = model.StatusInProgress
	o.events.Publish(ctx, model.EventBackupStarted, backup)
	log.Info().Msg("backup started")

	result, err := o.runner.Run(ctx, backup)
	o.finish(ctx, backup, result, err)
}

// finish applies the terminal transition and emits the matching event.
// The first terminal write wins; a late outcome racing an earlier one is
// discarded by the registry.
func (o *Orchestrator) finish(ctx context.Context, backup *model.Backup, result *JobResult, runErr error) {
	log := o.logger.With().Str("backup_id", backup.ID).Logger()

	upd := StatusUpdate{Status: model.StatusCompleted}
	if runErr != nil {
		upd = StatusUpdate{Status: model.StatusFailed, ErrorMessage: runErr.Error()}
	} else {
		upd.SizeBytes = result.SizeBytes
		upd.Checksum = result.Checksum
		upd.CompressionFormat = result.CompressionFormat
	}

	err := o.registry.UpdateStatus(ctx, backup.ID, upd)
	if errors.Is(err, ErrAlreadyTerminal) {
		log.Debug().Str("status", upd.Status).Msg("late outcome discarded")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("record terminal backup status")
		return
	}

	backup.Status = upd.Status
	now := time.Now()
	backup.CompletedAt = &now

	if runErr != nil {
		msg := runErr.Error()
		backup.ErrorMessage = &msg
		metrics.BackupsTotal.WithLabelValues("failed").Inc()
		o.events.Publish(ctx, model.EventBackupFailed, backup)
		log.Warn().Str("error", msg).Msg("backup failed")
		return
	}

	backup.SizeBytes = result.SizeBytes
	backup.Checksum = result.Checksum
	backup.CompressionFormat = result.CompressionFormat
	metrics.BackupsTotal.WithLabelValues("completed").Inc()
	o.events.Publish(ctx, model.EventBackupCompleted, backup)
	log.Info().Int64("size_bytes", result.SizeBytes).Msg("backup completed")
}

// Restore brings a server back to the state captured by a completed
// backup: stop, verify, extract, start. A stop timeout aborts before any
// data is touched; an extraction failure still restarts the server
// best-effort so it is not left stopped.
func (o *Orchestrator) Restore(ctx context.Context, backupID, tenantID string) error {
	backup, err := o.registry.Get(ctx, backupID, tenantID)
	if err != nil {
		return err
	}
	if backup.Status != model.StatusCompleted {
		return NewValidationError("backup %s is not completed (status: %s)", backupID, backup.Status)
	}

	log := o.logger.With().Str("backup_id", backupID).Str("server_id", backup.ServerID).Logger()

	stopCtx, cancel := context.WithTimeout(ctx, o.stopTimeout)
	defer cancel()
	if err := o.platform.StopResource(stopCtx, backup.ServerID, o.stopTimeout); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &TimeoutError{Op: "stop server " + backup.ServerID, Wait: o.stopTimeout}
		}
		return NewExecutionError("stop server %s: %v", backup.ServerID, err)
	}

	ref, err := o.artifacts.Locate(ctx, backup.ServerID, backup.ID)
	if err != nil {
		o.restartBestEffort(ctx, backup.ServerID)
		return NewExecutionError("locate artifact for backup %s: %v", backupID, err)
	}

	// Backups from before checksum support carry a bare 32-hex value with
	// nothing to verify against; those restore unverified on purpose.
	if IsLegacyChecksum(backup.Checksum) {
		log.Info().Msg("legacy checksum, skipping verification")
	} else {
		info, err := o.artifacts.Describe(ctx, ref)
		if err != nil {
			o.restartBestEffort(ctx, backup.ServerID)
			return NewExecutionError("verify artifact for backup %s: %v", backupID, err)
		}
		if info.Checksum != backup.Checksum {
			o.restartBestEffort(ctx, backup.ServerID)
			return NewExecutionError("artifact checksum mismatch for backup %s: recorded %s, artifact %s",
				backupID, backup.Checksum, info.Checksum)
		}
	}

	if err := o.platform.ExtractArtifact(ctx, backup.ServerID, ref); err != nil {
		o.restartBestEffort(ctx, backup.ServerID)
		return NewExecutionError("restore extraction failed for backup %s: %v", backupID, err)
	}

	if err := o.platform.StartResource(ctx, backup.ServerID); err != nil {
		return NewExecutionError("restart server %s after restore: %v", backup.ServerID, err)
	}

	o.events.Publish(ctx, model.EventBackupRestored, backup)
	log.Info().Msg("backup restored")
	return nil
}

func (o *Orchestrator) restartBestEffort(ctx context.Context, serverID string) {
	if err := o.platform.StartResource(context.WithoutCancel(ctx), serverID); err != nil {
		o.logger.Warn().Err(err).Str("server_id", serverID).Msg("best-effort restart failed")
	}
}

// Delete removes the record and cleans up the artifact. The artifact
// delete is fire-and-forget: its failure never blocks the metadata delete.
func (o *Orchestrator) Delete(ctx context.Context, backupID, tenantID string) error {
	backup, err := o.registry.Get(ctx, backupID, tenantID)
	if err != nil {
		return err
	}
	if err := o.registry.Delete(ctx, backupID, tenantID); err != nil {
		return err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		cleanupCtx := context.WithoutCancel(ctx)
		ref, err := o.artifacts.Locate(cleanupCtx, backup.ServerID, backup.ID)
		if err == nil {
			err = o.artifacts.Delete(cleanupCtx, ref)
		}
		if err != nil {
			o.logger.Warn().Err(err).Str("backup_id", backup.ID).Msg("artifact cleanup failed")
		}
	}()

	o.events.Publish(ctx, model.EventBackupDeleted, backup)
	return nil
}
