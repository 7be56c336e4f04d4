package core

import (
	"context"
	"time"

	"github.com/edvin/gamehost/internal/model"
)

// StatusUpdate carries the fields that may change when a backup record
// transitions. SizeBytes, Checksum and CompressionFormat only apply when
// the new status is completed; ErrorMessage only when it is failed.
type StatusUpdate struct {
	Status            string
	SizeBytes         int64
	Checksum          string
	CompressionFormat string
	ErrorMessage      string
}

// ListFilter narrows a backup listing. Empty fields are not applied.
type ListFilter struct {
	ServerID string
	TenantID string
}

// Registry is the authoritative store of backup and schedule records. It
// enforces the state invariants: single-flight on Insert, terminal
// immutability on UpdateStatus, and tenant-scoped not-found on reads and
// deletes. All other components go through it and never keep private
// copies of records.
type Registry interface {
	// Insert stores a new record. Returns a ConflictError when the server
	// already has a pending or in-progress backup.
	Insert(ctx context.Context, backup *model.Backup) error

	// UpdateStatus transitions a record. Once a record is terminal the
	// call is a no-op returning ErrAlreadyTerminal. The registry stamps
	// completed_at when the new status is terminal.
	UpdateStatus(ctx context.Context, id string, upd StatusUpdate) error

	// Get returns the record only if it belongs to the tenant; a foreign
	// record yields the same NotFoundError as a missing one.
	Get(ctx context.Context, id, tenantID string) (*model.Backup, error)

	// List returns matching records ordered by started_at descending.
	List(ctx context.Context, filter ListFilter) ([]model.Backup, error)

	// Delete removes the record, tenant-scoped like Get.
	Delete(ctx context.Context, id, tenantID string) error

	// SetSchedule creates or replaces the schedule for a server.
	SetSchedule(ctx context.Context, schedule *model.Schedule) error

	// GetSchedule is tenant-scoped like Get.
	GetSchedule(ctx context.Context, serverID, tenantID string) (*model.Schedule, error)

	// ListDueSchedules returns enabled schedules with next_run_at <= now,
	// ordered by next_run_at ascending for fairness.
	ListDueSchedules(ctx context.Context, now time.Time) ([]model.Schedule, error)

	// AdvanceSchedule moves next_run_at forward and, when lastRun is
	// non-nil, records the run. A nil lastRun is the skipped-run case.
	AdvanceSchedule(ctx context.Context, serverID string, lastRun *time.Time, nextRun time.Time) error
}
