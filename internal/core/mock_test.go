package core

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/gamehost/internal/artifact"
	"github.com/edvin/gamehost/internal/cluster"
	"github.com/edvin/gamehost/internal/model"
)

// ---------- Mock DB ----------

// mockDB implements the DB interface for testing.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// ---------- Mock Row ----------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// ---------- Mock Rows ----------

// mockRows implements pgx.Rows for testing.
// It iterates through a list of scan functions, one per row.
type mockRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
	err       error
}

func newMockRows(scanFuncs ...func(dest ...any) error) *mockRows {
	return &mockRows{scanFuncs: scanFuncs}
}

// newEmptyMockRows returns a mockRows that yields zero rows.
func newEmptyMockRows() *mockRows {
	return &mockRows{}
}

func (m *mockRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *mockRows) Scan(dest ...any) error {
	if m.callIndex < len(m.scanFuncs) {
		fn := m.scanFuncs[m.callIndex]
		m.callIndex++
		return fn(dest...)
	}
	return nil
}

func (m *mockRows) Err() error                                    { return m.err }
func (m *mockRows) Close()                                        {}
func (m *mockRows) CommandTag() pgconn.CommandTag                 { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription  { return nil }
func (m *mockRows) RawValues() [][]byte                           { return nil }
func (m *mockRows) Values() ([]any, error)                        { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                               { return nil }

// ---------- Mock execution platform ----------

type mockPlatform struct {
	mock.Mock
}

func (m *mockPlatform) RunPackagingUnit(ctx context.Context, serverID, backupID string) (cluster.UnitHandle, error) {
	args := m.Called(ctx, serverID, backupID)
	return args.Get(0).(cluster.UnitHandle), args.Error(1)
}

func (m *mockPlatform) PollUnit(ctx context.Context, handle cluster.UnitHandle) (cluster.UnitStatus, error) {
	args := m.Called(ctx, handle)
	return args.Get(0).(cluster.UnitStatus), args.Error(1)
}

func (m *mockPlatform) StopResource(ctx context.Context, serverID string, timeout time.Duration) error {
	args := m.Called(ctx, serverID, timeout)
	return args.Error(0)
}

func (m *mockPlatform) StartResource(ctx context.Context, serverID string) error {
	args := m.Called(ctx, serverID)
	return args.Error(0)
}

func (m *mockPlatform) ExtractArtifact(ctx context.Context, serverID string, ref artifact.Ref) error {
	args := m.Called(ctx, serverID, ref)
	return args.Error(0)
}

// ---------- Mock artifact store ----------

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Locate(ctx context.Context, serverID, backupID string) (artifact.Ref, error) {
	args := m.Called(ctx, serverID, backupID)
	return args.Get(0).(artifact.Ref), args.Error(1)
}

func (m *mockStore) Describe(ctx context.Context, ref artifact.Ref) (artifact.Info, error) {
	args := m.Called(ctx, ref)
	return args.Get(0).(artifact.Info), args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, ref artifact.Ref) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// ---------- Event sink spy ----------

// recordingSink captures published event types. Safe for the concurrent
// publishes coming from backup goroutines.
type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) Publish(_ context.Context, eventType string, _ any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, eventType)
}

func (s *recordingSink) published() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// ---------- Runner stub ----------

// runnerFunc adapts a function to the Runner interface.
type runnerFunc func(ctx context.Context, backup *model.Backup) (*JobResult, error)

func (f runnerFunc) Run(ctx context.Context, backup *model.Backup) (*JobResult, error) {
	return f(ctx, backup)
}
