package model

// Domain event types published on the event sink after each backup
// state transition.
const (
	EventBackupStarted   = "backup.started"
	EventBackupCompleted = "backup.completed"
	EventBackupFailed    = "backup.failed"
	EventBackupDeleted   = "backup.deleted"
	EventBackupRestored  = "backup.restored"
)
