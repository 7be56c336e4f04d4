package model

// Backup status constants.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// IsTerminal reports whether a backup status is final. Terminal records
// are immutable: no later status update may change them.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}
