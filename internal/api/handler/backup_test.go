package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/gamehost/internal/model"
)

// ---------- Create ----------

func TestBackupHandler_Create_Accepted(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/servers/srv-1/backups", "t1", map[string]any{
		"name": "before-update",
		"tags": []string{"manual"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var backup model.Backup
	decodeBody(t, rec, &backup)
	assert.Equal(t, "srv-1", backup.ServerID)
	assert.Equal(t, "t1", backup.TenantID)
	assert.Equal(t, model.StatusPending, backup.Status)
	assert.Equal(t, "before-update", backup.Name)
	assert.NotEmpty(t, backup.ID)
	assert.False(t, backup.IsAutomatic)
}

func TestBackupHandler_Create_MissingTenantHeader(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/servers/srv-1/backups", "", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBackupHandler_Create_Conflict(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.registry.Insert(context.Background(), &model.Backup{
		ID: "running", ServerID: "srv-1", TenantID: "t1",
		Status: model.StatusInProgress, StartedAt: time.Now(),
	}))

	rec := f.do(http.MethodPost, "/api/v1/servers/srv-1/backups", "t1", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBackupHandler_Create_InvalidBody(t *testing.T) {
	f := newFixture(t)

	// Name beyond the length cap.
	longName := make([]byte, 200)
	for i := range longName {
		longName[i] = 'a'
	}
	rec := f.do(http.MethodPost, "/api/v1/servers/srv-1/backups", "t1", map[string]any{
		"name": string(longName),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---------- Get / List ----------

func TestBackupHandler_Get_Success(t *testing.T) {
	f := newFixture(t)
	f.seedCompleted(t, "b1", "srv-1", "t1")

	rec := f.do(http.MethodGet, "/api/v1/backups/b1", "t1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var backup model.Backup
	decodeBody(t, rec, &backup)
	assert.Equal(t, "b1", backup.ID)
	assert.Equal(t, model.StatusCompleted, backup.Status)
	assert.Equal(t, int64(500000), backup.SizeBytes)
}

func TestBackupHandler_Get_ForeignTenantIs404(t *testing.T) {
	f := newFixture(t)
	f.seedCompleted(t, "b1", "srv-1", "t1")

	rec := f.do(http.MethodGet, "/api/v1/backups/b1", "t2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBackupHandler_Get_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/backups/nonexistent", "t1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBackupHandler_ListByServer(t *testing.T) {
	f := newFixture(t)
	f.seedCompleted(t, "b1", "srv-1", "t1")

	rec := f.do(http.MethodGet, "/api/v1/servers/srv-1/backups", "t1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var backups []model.Backup
	decodeBody(t, rec, &backups)
	require.Len(t, backups, 1)
	assert.Equal(t, "b1", backups[0].ID)
}

func TestBackupHandler_ListByServer_ScopedToTenant(t *testing.T) {
	f := newFixture(t)
	f.seedCompleted(t, "b1", "srv-1", "t1")

	rec := f.do(http.MethodGet, "/api/v1/servers/srv-1/backups", "t2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var backups []model.Backup
	decodeBody(t, rec, &backups)
	assert.Empty(t, backups)
}

// ---------- Delete ----------

func TestBackupHandler_Delete_Success(t *testing.T) {
	f := newFixture(t)
	f.seedCompleted(t, "b1", "srv-1", "t1")

	rec := f.do(http.MethodDelete, "/api/v1/backups/b1", "t1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/backups/b1", "t1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBackupHandler_Delete_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodDelete, "/api/v1/backups/nonexistent", "t1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---------- Restore ----------

func TestBackupHandler_Restore_Success(t *testing.T) {
	f := newFixture(t)
	f.seedCompleted(t, "b1", "srv-1", "t1")

	rec := f.do(http.MethodPost, "/api/v1/backups/b1/restore", "t1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBackupHandler_Restore_NotCompletedIs400(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.registry.Insert(context.Background(), &model.Backup{
		ID: "b1", ServerID: "srv-1", TenantID: "t1",
		Status: model.StatusPending, StartedAt: time.Now(),
	}))

	rec := f.do(http.MethodPost, "/api/v1/backups/b1/restore", "t1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBackupHandler_Restore_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/backups/nonexistent/restore", "t1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
