package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrAlreadyTerminal is returned by Registry.UpdateStatus when the record
// has already reached completed or failed. Terminal states are immutable;
// the first transition wins and later ones are discarded.
var ErrAlreadyTerminal = errors.New("backup is already in a terminal state")

// ValidationError reports bad input. Surfaced to the caller immediately,
// never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports a single-flight violation: a backup for the server
// is already pending or in progress. The caller may retry later.
type ConflictError struct {
	ServerID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("a backup for server %s is already in flight", e.ServerID)
}

// NotFoundError reports a tenant-scoped absence. Records owned by another
// tenant produce the same error as records that do not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ExecutionError reports that packaging or restore work failed on the
// execution platform. For backups it is recorded on the record rather than
// returned to the original caller, since Create has already returned.
type ExecutionError struct {
	Msg string
}

func (e *ExecutionError) Error() string { return e.Msg }

func NewExecutionError(format string, args ...any) *ExecutionError {
	return &ExecutionError{Msg: fmt.Sprintf(format, args...)}
}

// TimeoutError reports that an operation exceeded its bound. Stored like an
// ExecutionError but distinguishable by message for diagnostics.
type TimeoutError struct {
	Op   string
	Wait time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Wait)
}
