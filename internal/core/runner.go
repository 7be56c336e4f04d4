package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/gamehost/internal/artifact"
	"github.com/edvin/gamehost/internal/cluster"
	"github.com/edvin/gamehost/internal/model"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultJobMaxWait   = 5 * time.Minute
)

// JobResult is the outcome of one successful packaging unit. Size and
// checksum are read from the produced artifact itself.
type JobResult struct {
	SizeBytes         int64
	Checksum          string
	CompressionFormat string
}

// Runner turns one backup record into a JobResult or an error by
// delegating the packaging to the execution platform.
type Runner interface {
	Run(ctx context.Context, backup *model.Backup) (*JobResult, error)
}

// JobRunner submits one packaging unit and polls it to completion or
// timeout. It never touches the registry; the orchestrator keeps
// state-transition authority.
type JobRunner struct {
	platform     cluster.Orchestrator
	artifacts    artifact.Store
	pollInterval time.Duration
	maxWait      time.Duration
	logger       zerolog.Logger
}

func NewJobRunner(platform cluster.Orchestrator, artifacts artifact.Store, pollInterval, maxWait time.Duration, logger zerolog.Logger) *JobRunner {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if maxWait <= 0 {
		maxWait = DefaultJobMaxWait
	}
	return &JobRunner{
		platform:     platform,
		artifacts:    artifacts,
		pollInterval: pollInterval,
		maxWait:      maxWait,
		logger:       logger.With().Str("component", "job-runner").Logger(),
	}
}

// Run submits the packaging unit and polls on a fixed interval up to
// maxWait. A submission rejection fails immediately without polling. No
// lock is held between polls; the wait is a plain select.
func (r *JobRunner) Run(ctx context.Context, backup *model.Backup) (*JobResult, error) {
	handle, err := r.platform.RunPackagingUnit(ctx, backup.ServerID, backup.ID)
	if err != nil {
		return nil, NewExecutionError("submit packaging unit: %v", err)
	}

	log := r.logger.With().Str("backup_id", backup.ID).Str("server_id", backup.ServerID).Logger()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(r.maxWait)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, &TimeoutError{Op: "packaging unit", Wait: r.maxWait}
		case <-ticker.C:
			status, err := r.platform.PollUnit(ctx, handle)
			if err != nil {
				// Transient poll failures count against the deadline but
				// don't fail the job.
				log.Warn().Err(err).Msg("poll packaging unit")
				continue
			}
			switch status.State {
			case cluster.UnitSucceeded:
				return r.describeArtifact(ctx, backup)
			case cluster.UnitFailed:
				return nil, NewExecutionError("packaging unit failed: %s", status.Message)
			}
		}
	}
}

func (r *JobRunner) describeArtifact(ctx context.Context, backup *model.Backup) (*JobResult, error) {
	ref, err := r.artifacts.Locate(ctx, backup.ServerID, backup.ID)
	if err != nil {
		return nil, NewExecutionError("packaging unit succeeded but artifact is missing: %v", err)
	}
	info, err := r.artifacts.Describe(ctx, ref)
	if err != nil {
		return nil, NewExecutionError("describe artifact: %v", err)
	}
	return &JobResult{
		SizeBytes:         info.SizeBytes,
		Checksum:          info.Checksum,
		CompressionFormat: info.Format,
	}, nil
}
