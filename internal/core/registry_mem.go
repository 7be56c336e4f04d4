package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/edvin/gamehost/internal/model"
)

// MemoryRegistry keeps all records in process memory behind one mutex. It
// honors the same contract as PostgresRegistry and backs tests and the
// STORE=memory development mode. No registry call blocks while external
// work is in flight, so the single mutex never serializes different
// servers' backups.
type MemoryRegistry struct {
	mu        sync.Mutex
	backups   map[string]*model.Backup
	schedules map[string]*model.Schedule
	now       func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		backups:   make(map[string]*model.Backup),
		schedules: make(map[string]*model.Schedule),
		now:       time.Now,
	}
}

func copyBackup(b *model.Backup) *model.Backup {
	cp := *b
	if b.Tags != nil {
		cp.Tags = append([]string(nil), b.Tags...)
	}
	if b.ErrorMessage != nil {
		msg := *b.ErrorMessage
		cp.ErrorMessage = &msg
	}
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

func copySchedule(s *model.Schedule) *model.Schedule {
	cp := *s
	if s.LastRunAt != nil {
		t := *s.LastRunAt
		cp.LastRunAt = &t
	}
	if s.NextRunAt != nil {
		t := *s.NextRunAt
		cp.NextRunAt = &t
	}
	return &cp
}

func (r *MemoryRegistry) Insert(ctx context.Context, backup *model.Backup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.backups {
		if existing.ServerID == backup.ServerID && !model.IsTerminal(existing.Status) {
			return &ConflictError{ServerID: backup.ServerID}
		}
	}
	r.backups[backup.ID] = copyBackup(backup)
	return nil
}

func (r *MemoryRegistry) UpdateStatus(ctx context.Context, id string, upd StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.backups[id]
	if !ok {
		return &NotFoundError{Resource: "backup", ID: id}
	}
	if model.IsTerminal(b.Status) {
		return ErrAlreadyTerminal
	}

	b.Status = upd.Status
	b.SizeBytes = upd.SizeBytes
	b.Checksum = upd.Checksum
	b.CompressionFormat = upd.CompressionFormat
	if upd.ErrorMessage != "" {
		msg := upd.ErrorMessage
		b.ErrorMessage = &msg
	} else {
		b.ErrorMessage = nil
	}
	if model.IsTerminal(upd.Status) {
		t := r.now()
		b.CompletedAt = &t
	}
	return nil
}

func (r *MemoryRegistry) Get(ctx context.Context, id, tenantID string) (*model.Backup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.backups[id]
	if !ok || b.TenantID != tenantID {
		return nil, &NotFoundError{Resource: "backup", ID: id}
	}
	return copyBackup(b), nil
}

func (r *MemoryRegistry) List(ctx context.Context, filter ListFilter) ([]model.Backup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var backups []model.Backup
	for _, b := range r.backups {
		if filter.ServerID != "" && b.ServerID != filter.ServerID {
			continue
		}
		if filter.TenantID != "" && b.TenantID != filter.TenantID {
			continue
		}
		backups = append(backups, *copyBackup(b))
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].StartedAt.After(backups[j].StartedAt)
	})
	return backups, nil
}

func (r *MemoryRegistry) Delete(ctx context.Context, id, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.backups[id]
	if !ok || b.TenantID != tenantID {
		return &NotFoundError{Resource: "backup", ID: id}
	}
	delete(r.backups, id)
	return nil
}

func (r *MemoryRegistry) SetSchedule(ctx context.Context, schedule *model.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.schedules[schedule.ServerID] = copySchedule(schedule)
	return nil
}

func (r *MemoryRegistry) GetSchedule(ctx context.Context, serverID, tenantID string) (*model.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.schedules[serverID]
	if !ok || s.TenantID != tenantID {
		return nil, &NotFoundError{Resource: "schedule", ID: serverID}
	}
	return copySchedule(s), nil
}

func (r *MemoryRegistry) ListDueSchedules(ctx context.Context, now time.Time) ([]model.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []model.Schedule
	for _, s := range r.schedules {
		if s.Enabled && s.NextRunAt != nil && !s.NextRunAt.After(now) {
			due = append(due, *copySchedule(s))
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextRunAt.Before(*due[j].NextRunAt)
	})
	return due, nil
}

func (r *MemoryRegistry) AdvanceSchedule(ctx context.Context, serverID string, lastRun *time.Time, nextRun time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.schedules[serverID]
	if !ok {
		return &NotFoundError{Resource: "schedule", ID: serverID}
	}
	if lastRun != nil {
		t := *lastRun
		s.LastRunAt = &t
	}
	s.NextRunAt = &nextRun
	return nil
}
