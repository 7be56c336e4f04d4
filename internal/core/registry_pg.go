package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/gamehost/internal/model"
)

const backupColumns = `id, server_id, tenant_id, name, description, tags, status, is_automatic,
	 size_bytes, checksum, compression_format, error_message, started_at, completed_at`

// PostgresRegistry is the durable Registry backed by the core database.
type PostgresRegistry struct {
	db     DB
	logger zerolog.Logger
}

func NewPostgresRegistry(db DB, logger zerolog.Logger) *PostgresRegistry {
	return &PostgresRegistry{
		db:     db,
		logger: logger.With().Str("component", "registry").Logger(),
	}
}

func (r *PostgresRegistry) Insert(ctx context.Context, backup *model.Backup) error {
	// The WHERE NOT EXISTS clause and the partial unique index on
	// (server_id) for active statuses together make the single-flight
	// check atomic under concurrent inserts.
	tag, err := r.db.Exec(ctx,
		`INSERT INTO backups (id, server_id, tenant_id, name, description, tags, status, is_automatic, started_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		 WHERE NOT EXISTS (
			SELECT 1 FROM backups WHERE server_id = $2 AND status IN ('pending', 'in_progress')
		 )`,
		backup.ID, backup.ServerID, backup.TenantID, backup.Name, backup.Description,
		backup.Tags, backup.Status, backup.IsAutomatic, backup.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert backup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &ConflictError{ServerID: backup.ServerID}
	}
	return nil
}

func (r *PostgresRegistry) UpdateStatus(ctx context.Context, id string, upd StatusUpdate) error {
	var errMsg *string
	if upd.ErrorMessage != "" {
		errMsg = &upd.ErrorMessage
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE backups
		 SET status = $2, size_bytes = $3, checksum = $4, compression_format = $5, error_message = $6,
		     completed_at = CASE WHEN $2 IN ('completed', 'failed') THEN now() ELSE completed_at END
		 WHERE id = $1 AND status IN ('pending', 'in_progress')`,
		id, upd.Status, upd.SizeBytes, upd.Checksum, upd.CompressionFormat, errMsg,
	)
	if err != nil {
		return fmt.Errorf("update backup %s status: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// No row matched: either the record is gone or it is already terminal.
	var status string
	err = r.db.QueryRow(ctx, "SELECT status FROM backups WHERE id = $1", id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return &NotFoundError{Resource: "backup", ID: id}
	}
	if err != nil {
		return fmt.Errorf("check backup %s status: %w", id, err)
	}
	r.logger.Warn().
		Str("backup_id", id).
		Str("current_status", status).
		Str("rejected_status", upd.Status).
		Msg("discarding status update for terminal backup")
	return ErrAlreadyTerminal
}

func (r *PostgresRegistry) Get(ctx context.Context, id, tenantID string) (*model.Backup, error) {
	var b model.Backup
	err := r.db.QueryRow(ctx,
		`SELECT `+backupColumns+` FROM backups WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	).Scan(&b.ID, &b.ServerID, &b.TenantID, &b.Name, &b.Description, &b.Tags,
		&b.Status, &b.IsAutomatic, &b.SizeBytes, &b.Checksum, &b.CompressionFormat,
		&b.ErrorMessage, &b.StartedAt, &b.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: "backup", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %s: %w", id, err)
	}
	return &b, nil
}

func (r *PostgresRegistry) List(ctx context.Context, filter ListFilter) ([]model.Backup, error) {
	query := `SELECT ` + backupColumns + ` FROM backups`
	var args []any
	var where []string
	if filter.ServerID != "" {
		args = append(args, filter.ServerID)
		where = append(where, fmt.Sprintf("server_id = $%d", len(args)))
	}
	if filter.TenantID != "" {
		args = append(args, filter.TenantID)
		where = append(where, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY started_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		var b model.Backup
		if err := rows.Scan(&b.ID, &b.ServerID, &b.TenantID, &b.Name, &b.Description, &b.Tags,
			&b.Status, &b.IsAutomatic, &b.SizeBytes, &b.Checksum, &b.CompressionFormat,
			&b.ErrorMessage, &b.StartedAt, &b.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backups: %w", err)
	}
	return backups, nil
}

func (r *PostgresRegistry) Delete(ctx context.Context, id, tenantID string) error {
	tag, err := r.db.Exec(ctx,
		"DELETE FROM backups WHERE id = $1 AND tenant_id = $2", id, tenantID,
	)
	if err != nil {
		return fmt.Errorf("delete backup %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "backup", ID: id}
	}
	return nil
}

func (r *PostgresRegistry) SetSchedule(ctx context.Context, schedule *model.Schedule) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO backup_schedules (server_id, tenant_id, enabled, interval_hours, retention_count, last_run_at, next_run_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (server_id) DO UPDATE SET
		   tenant_id = EXCLUDED.tenant_id,
		   enabled = EXCLUDED.enabled,
		   interval_hours = EXCLUDED.interval_hours,
		   retention_count = EXCLUDED.retention_count,
		   last_run_at = EXCLUDED.last_run_at,
		   next_run_at = EXCLUDED.next_run_at`,
		schedule.ServerID, schedule.TenantID, schedule.Enabled, schedule.IntervalHours,
		schedule.RetentionCount, schedule.LastRunAt, schedule.NextRunAt,
	)
	if err != nil {
		return fmt.Errorf("set schedule for server %s: %w", schedule.ServerID, err)
	}
	return nil
}

func (r *PostgresRegistry) GetSchedule(ctx context.Context, serverID, tenantID string) (*model.Schedule, error) {
	var s model.Schedule
	err := r.db.QueryRow(ctx,
		`SELECT server_id, tenant_id, enabled, interval_hours, retention_count, last_run_at, next_run_at
		 FROM backup_schedules WHERE server_id = $1 AND tenant_id = $2`,
		serverID, tenantID,
	).Scan(&s.ServerID, &s.TenantID, &s.Enabled, &s.IntervalHours, &s.RetentionCount,
		&s.LastRunAt, &s.NextRunAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Resource: "schedule", ID: serverID}
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule for server %s: %w", serverID, err)
	}
	return &s, nil
}

func (r *PostgresRegistry) ListDueSchedules(ctx context.Context, now time.Time) ([]model.Schedule, error) {
	rows, err := r.db.Query(ctx,
		`SELECT server_id, tenant_id, enabled, interval_hours, retention_count, last_run_at, next_run_at
		 FROM backup_schedules
		 WHERE enabled AND next_run_at <= $1
		 ORDER BY next_run_at ASC`, now,
	)
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	defer rows.Close()

	var schedules []model.Schedule
	for rows.Next() {
		var s model.Schedule
		if err := rows.Scan(&s.ServerID, &s.TenantID, &s.Enabled, &s.IntervalHours,
			&s.RetentionCount, &s.LastRunAt, &s.NextRunAt); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return schedules, nil
}

func (r *PostgresRegistry) AdvanceSchedule(ctx context.Context, serverID string, lastRun *time.Time, nextRun time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE backup_schedules
		 SET last_run_at = COALESCE($2, last_run_at), next_run_at = $3
		 WHERE server_id = $1`,
		serverID, lastRun, nextRun,
	)
	if err != nil {
		return fmt.Errorf("advance schedule for server %s: %w", serverID, err)
	}
	return nil
}
