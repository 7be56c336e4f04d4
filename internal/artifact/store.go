// Package artifact locates and describes the backup artifacts produced by
// the execution platform. The upload itself is the packaging unit's job;
// this package only reads and deletes what was produced.
package artifact

import "context"

// Ref points at one stored artifact.
type Ref struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Info describes a stored artifact. Checksum is a content hash in
// "sha256:<hex>" form computed from the object bytes.
type Info struct {
	SizeBytes int64
	Checksum  string
	Format    string
}

type Store interface {
	// Locate resolves the artifact for a backup. Returns an error when no
	// artifact exists at the conventional location.
	Locate(ctx context.Context, serverID, backupID string) (Ref, error)

	// Describe reads the artifact's size and computes its content checksum.
	Describe(ctx context.Context, ref Ref) (Info, error)

	// Delete removes the artifact. Callers treat failures as best-effort.
	Delete(ctx context.Context, ref Ref) error
}
