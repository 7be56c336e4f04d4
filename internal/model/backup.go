package model

import "time"

// Backup is the persisted metadata for one backup attempt of a game server.
// SizeBytes, Checksum and CompressionFormat are set only once the backup
// completes; ErrorMessage only when it fails.
type Backup struct {
	ID                string     `json:"id"`
	ServerID          string     `json:"server_id"`
	TenantID          string     `json:"tenant_id"`
	Name              string     `json:"name,omitempty"`
	Description       string     `json:"description,omitempty"`
	Tags              []string   `json:"tags,omitempty"`
	Status            string     `json:"status"`
	IsAutomatic       bool       `json:"is_automatic"`
	SizeBytes         int64      `json:"size_bytes,omitempty"`
	Checksum          string     `json:"checksum,omitempty"`
	CompressionFormat string     `json:"compression_format,omitempty"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}
