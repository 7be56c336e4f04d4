package model

import "time"

// Schedule is the automatic backup cadence for one server. A server has at
// most one schedule; setting a new one replaces the old. NextRunAt is null
// exactly when the schedule is disabled.
type Schedule struct {
	ServerID       string     `json:"server_id"`
	TenantID       string     `json:"tenant_id"`
	Enabled        bool       `json:"enabled"`
	IntervalHours  int        `json:"interval_hours"`
	RetentionCount int        `json:"retention_count"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	NextRunAt      *time.Time `json:"next_run_at,omitempty"`
}
