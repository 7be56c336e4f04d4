package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/gamehost/internal/artifact"
	"github.com/edvin/gamehost/internal/model"
)

// seedAutomatic inserts n automatic completed backups for the server, the
// most recent one last. Each insert is completed before the next so the
// single-flight guard permits them.
func seedAutomatic(t *testing.T, reg *MemoryRegistry, serverID, tenantID string, n int, base time.Time) []string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-auto-%d", serverID, i)
		require.NoError(t, reg.Insert(ctx, &model.Backup{
			ID: id, ServerID: serverID, TenantID: tenantID,
			Status: model.StatusPending, IsAutomatic: true,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}))
		require.NoError(t, reg.UpdateStatus(ctx, id, StatusUpdate{Status: model.StatusCompleted}))
		ids = append(ids, id)
	}
	return ids
}

func TestRetentionEnforcer_PrunesBeyondCount(t *testing.T) {
	reg := NewMemoryRegistry()
	store := &mockStore{}
	enforcer := NewRetentionEnforcer(reg, store, zerolog.Nop())
	ctx := context.Background()

	base := time.Now().Add(-24 * time.Hour)
	ids := seedAutomatic(t, reg, "srv-1", "t1", 5, base)

	store.On("Locate", mock.Anything, "srv-1", mock.AnythingOfType("string")).
		Return(artifact.Ref{Bucket: "backups", Key: "x"}, nil)
	store.On("Delete", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, enforcer.Enforce(ctx, "srv-1", "t1", 2))

	remaining, err := reg.List(ctx, ListFilter{ServerID: "srv-1", TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	// The two newest survive.
	assert.Equal(t, ids[4], remaining[0].ID)
	assert.Equal(t, ids[3], remaining[1].ID)
}

func TestRetentionEnforcer_ManualBackupsUntouched(t *testing.T) {
	reg := NewMemoryRegistry()
	store := &mockStore{}
	enforcer := NewRetentionEnforcer(reg, store, zerolog.Nop())
	ctx := context.Background()

	base := time.Now().Add(-48 * time.Hour)
	// An old manual backup, older than everything automatic.
	require.NoError(t, reg.Insert(ctx, &model.Backup{
		ID: "manual-1", ServerID: "srv-1", TenantID: "t1",
		Status: model.StatusPending, StartedAt: base.Add(-time.Hour),
	}))
	require.NoError(t, reg.UpdateStatus(ctx, "manual-1", StatusUpdate{Status: model.StatusCompleted}))
	seedAutomatic(t, reg, "srv-1", "t1", 3, base)

	store.On("Locate", mock.Anything, "srv-1", mock.AnythingOfType("string")).
		Return(artifact.Ref{}, nil)
	store.On("Delete", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, enforcer.Enforce(ctx, "srv-1", "t1", 1))

	_, err := reg.Get(ctx, "manual-1", "t1")
	require.NoError(t, err)

	remaining, err := reg.List(ctx, ListFilter{ServerID: "srv-1", TenantID: "t1"})
	require.NoError(t, err)
	assert.Len(t, remaining, 2) // manual + newest automatic
}

func TestRetentionEnforcer_NonTerminalUntouched(t *testing.T) {
	reg := NewMemoryRegistry()
	store := &mockStore{}
	enforcer := NewRetentionEnforcer(reg, store, zerolog.Nop())
	ctx := context.Background()

	base := time.Now().Add(-24 * time.Hour)
	seedAutomatic(t, reg, "srv-1", "t1", 2, base)
	// An in-flight automatic backup must never be pruned.
	require.NoError(t, reg.Insert(ctx, &model.Backup{
		ID: "running", ServerID: "srv-1", TenantID: "t1",
		Status: model.StatusInProgress, IsAutomatic: true,
		StartedAt: base.Add(-time.Hour),
	}))

	store.On("Locate", mock.Anything, "srv-1", mock.AnythingOfType("string")).
		Return(artifact.Ref{}, nil)
	store.On("Delete", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, enforcer.Enforce(ctx, "srv-1", "t1", 1))

	_, err := reg.Get(ctx, "running", "t1")
	require.NoError(t, err)
}

func TestRetentionEnforcer_ArtifactFailureDoesNotAbort(t *testing.T) {
	reg := NewMemoryRegistry()
	store := &mockStore{}
	enforcer := NewRetentionEnforcer(reg, store, zerolog.Nop())
	ctx := context.Background()

	base := time.Now().Add(-24 * time.Hour)
	seedAutomatic(t, reg, "srv-1", "t1", 3, base)

	store.On("Locate", mock.Anything, "srv-1", mock.AnythingOfType("string")).
		Return(artifact.Ref{}, fmt.Errorf("object missing"))

	require.NoError(t, enforcer.Enforce(ctx, "srv-1", "t1", 1))

	remaining, err := reg.List(ctx, ListFilter{ServerID: "srv-1", TenantID: "t1"})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestRetentionEnforcer_InvalidCount(t *testing.T) {
	enforcer := NewRetentionEnforcer(NewMemoryRegistry(), &mockStore{}, zerolog.Nop())

	err := enforcer.Enforce(context.Background(), "srv-1", "t1", 0)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}
