// Package cluster abstracts the container platform that performs the
// actual packaging and extraction work. The backup core only observes it
// through submit/poll/stop/start primitives.
package cluster

import (
	"context"
	"time"

	"github.com/edvin/gamehost/internal/artifact"
)

// UnitHandle identifies one submitted unit of packaging work.
type UnitHandle string

// UnitState is the observed state of a packaging unit.
type UnitState string

const (
	UnitRunning   UnitState = "running"
	UnitSucceeded UnitState = "succeeded"
	UnitFailed    UnitState = "failed"
)

// UnitStatus is one poll observation. Message carries the platform's error
// when the unit failed.
type UnitStatus struct {
	State   UnitState
	Message string
}

// Orchestrator is the execution platform contract. All methods take a
// context so in-flight calls are cancellable when the caller gives up.
type Orchestrator interface {
	// RunPackagingUnit submits one unit of backup work for the server.
	// The unit packages the server's data volume and uploads the artifact
	// under the backup's ID.
	RunPackagingUnit(ctx context.Context, serverID, backupID string) (UnitHandle, error)

	// PollUnit reports the unit's current state. Transient poll failures
	// return an error and leave the unit untouched.
	PollUnit(ctx context.Context, handle UnitHandle) (UnitStatus, error)

	// StopResource stops the server and waits up to timeout for
	// confirmation.
	StopResource(ctx context.Context, serverID string, timeout time.Duration) error

	// StartResource starts the server.
	StartResource(ctx context.Context, serverID string) error

	// ExtractArtifact applies the artifact onto the server's data volume.
	// The server must be stopped first.
	ExtractArtifact(ctx context.Context, serverID string, ref artifact.Ref) error
}
