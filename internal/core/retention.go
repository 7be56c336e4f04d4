package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/edvin/gamehost/internal/artifact"
	"github.com/edvin/gamehost/internal/metrics"
	"github.com/edvin/gamehost/internal/model"
)

// RetentionEnforcer bounds the growth of automatic backups. Manual backups
// are never touched regardless of the retention count.
type RetentionEnforcer struct {
	registry  Registry
	artifacts artifact.Store
	logger    zerolog.Logger
}

func NewRetentionEnforcer(registry Registry, artifacts artifact.Store, logger zerolog.Logger) *RetentionEnforcer {
	return &RetentionEnforcer{
		registry:  registry,
		artifacts: artifacts,
		logger:    logger.With().Str("component", "retention").Logger(),
	}
}

// Enforce deletes every automatic completed backup of the server beyond
// the retentionCount newest. The metadata delete is authoritative;
// artifact cleanup is best-effort and never fails the prune.
func (e *RetentionEnforcer) Enforce(ctx context.Context, serverID, tenantID string, retentionCount int) error {
	if retentionCount < 1 {
		return NewValidationError("retention count must be at least 1")
	}

	backups, err := e.registry.List(ctx, ListFilter{ServerID: serverID, TenantID: tenantID})
	if err != nil {
		return err
	}

	// List is newest-first; keep the first retentionCount automatic
	// completed records and drop the rest.
	kept := 0
	for _, b := range backups {
		if !b.IsAutomatic || b.Status != model.StatusCompleted {
			continue
		}
		if kept < retentionCount {
			kept++
			continue
		}

		if err := e.registry.Delete(ctx, b.ID, b.TenantID); err != nil {
			e.logger.Error().Err(err).Str("backup_id", b.ID).Msg("prune backup record")
			continue
		}
		metrics.RetentionDeletesTotal.Inc()
		e.logger.Info().
			Str("backup_id", b.ID).
			Str("server_id", serverID).
			Time("started_at", b.StartedAt).
			Msg("pruned automatic backup")

		if ref, err := e.artifacts.Locate(ctx, b.ServerID, b.ID); err == nil {
			if err := e.artifacts.Delete(ctx, ref); err != nil {
				e.logger.Warn().Err(err).Str("backup_id", b.ID).Msg("artifact cleanup failed")
			}
		}
	}
	return nil
}
