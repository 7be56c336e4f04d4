package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	mw "github.com/edvin/gamehost/internal/api/middleware"
	"github.com/edvin/gamehost/internal/artifact"
	"github.com/edvin/gamehost/internal/cluster"
	"github.com/edvin/gamehost/internal/core"
	"github.com/edvin/gamehost/internal/model"
)

// stubRunner completes every backup instantly with a fixed result.
type stubRunner struct{}

func (stubRunner) Run(context.Context, *model.Backup) (*core.JobResult, error) {
	return &core.JobResult{SizeBytes: 500000, Checksum: "sha256:abc", CompressionFormat: "gzip"}, nil
}

// stubPlatform accepts every operation.
type stubPlatform struct{}

func (stubPlatform) RunPackagingUnit(context.Context, string, string) (cluster.UnitHandle, error) {
	return cluster.UnitHandle("unit-1"), nil
}

func (stubPlatform) PollUnit(context.Context, cluster.UnitHandle) (cluster.UnitStatus, error) {
	return cluster.UnitStatus{State: cluster.UnitSucceeded}, nil
}

func (stubPlatform) StopResource(context.Context, string, time.Duration) error { return nil }
func (stubPlatform) StartResource(context.Context, string) error               { return nil }
func (stubPlatform) ExtractArtifact(context.Context, string, artifact.Ref) error {
	return nil
}

// stubStore resolves every backup to the same artifact. The checksum
// matches what stubRunner records, so restores verify cleanly.
type stubStore struct{}

func (stubStore) Locate(_ context.Context, serverID, backupID string) (artifact.Ref, error) {
	return artifact.Ref{Bucket: "backups", Key: serverID + "/" + backupID + ".tar.gz"}, nil
}

func (stubStore) Describe(context.Context, artifact.Ref) (artifact.Info, error) {
	return artifact.Info{SizeBytes: 500000, Checksum: "sha256:abc", Format: "gzip"}, nil
}

func (stubStore) Delete(context.Context, artifact.Ref) error { return nil }

type nopSink struct{}

func (nopSink) Publish(context.Context, string, any) {}

// fixture wires the handlers behind a router the way the server does,
// tenant middleware included.
type fixture struct {
	registry *core.MemoryRegistry
	orch     *core.Orchestrator
	router   chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	registry := core.NewMemoryRegistry()
	orch := core.NewOrchestrator(registry, stubRunner{}, stubPlatform{}, stubStore{}, nopSink{}, time.Second, zerolog.Nop())
	t.Cleanup(orch.Wait)

	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Tenant)

		backup := NewBackup(orch, registry)
		r.Get("/servers/{serverID}/backups", backup.ListByServer)
		r.Post("/servers/{serverID}/backups", backup.Create)
		r.Get("/backups/{id}", backup.Get)
		r.Delete("/backups/{id}", backup.Delete)
		r.Post("/backups/{id}/restore", backup.Restore)

		schedule := NewSchedule(registry)
		r.Get("/servers/{serverID}/backup-schedule", schedule.Get)
		r.Put("/servers/{serverID}/backup-schedule", schedule.Set)
	})

	return &fixture{registry: registry, orch: orch, router: router}
}

// do performs a request with the tenant header set and returns the recorder.
func (f *fixture) do(method, target, tenantID string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	if tenantID != "" {
		r.Header.Set(mw.TenantHeader, tenantID)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, r)
	return rec
}

// seedCompleted stores a completed backup directly in the registry.
func (f *fixture) seedCompleted(t *testing.T, id, serverID, tenantID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.registry.Insert(ctx, &model.Backup{
		ID: id, ServerID: serverID, TenantID: tenantID,
		Status: model.StatusPending, StartedAt: time.Now(),
	}))
	require.NoError(t, f.registry.UpdateStatus(ctx, id, core.StatusUpdate{
		Status:            model.StatusCompleted,
		SizeBytes:         500000,
		Checksum:          "sha256:abc",
		CompressionFormat: "gzip",
	}))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}
