package backup

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"risk-register-backup/internal/database"
	"risk-register-backup/internal/entity"
	apperrors "risk-register-backup/internal/errors"
	"risk-register-backup/internal/logging"
	"risk-register-backup/internal/store"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	service := database.NewServiceWithOptions(logging.NewNopLogger(), 5*time.Second, apperrors.RetryConfig{
		MaxAttempts: 1,
		BaseDelay:   time.Millisecond,
		Multiplier:  1,
	})
	db, err := service.Connect(database.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "register.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = service.Close(db) })

	require.NoError(t, database.EnsureSchema(context.Background(), db))
	return store.New(db)
}

func strPtr(s string) *string { return &s }

// seedRegister writes 2 departments and 4 risks plus the reference rows they need
func seedRegister(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := context.Background()
	at := baseTime

	require.NoError(t, s.Departments.Create(ctx, entity.Department{ID: "dep-fin", Code: "FIN", NameEn: "Finance", NameAr: "المالية", CreatedAt: at, UpdatedAt: at}))
	require.NoError(t, s.Departments.Create(ctx, entity.Department{ID: "dep-it", Code: "IT", NameEn: "Information Technology", CreatedAt: at, UpdatedAt: at}))
	require.NoError(t, s.Categories.Create(ctx, entity.Category{ID: "cat-ops", Code: "OPS", NameEn: "Operational", CreatedAt: at, UpdatedAt: at}))
	require.NoError(t, s.RiskStatuses.Create(ctx, entity.RiskStatus{ID: "st-open", Code: "OPEN", NameEn: "Open", SortOrder: 1, CreatedAt: at, UpdatedAt: at}))

	for i := 1; i <= 4; i++ {
		require.NoError(t, s.Risks.Create(ctx, entity.Risk{
			ID: fmt.Sprintf("risk-%d", i), RiskNumber: fmt.Sprintf("RSK-%03d", i), TitleEn: fmt.Sprintf("Risk %d", i),
			DepartmentID: "dep-fin", CategoryID: "cat-ops", StatusID: "st-open",
			InherentLikelihood: 3, InherentImpact: 4,
			IdentifiedAt: entity.NewDate(at.Add(-24 * time.Hour)),
			CreatedAt:    at, UpdatedAt: at,
		}))
	}
}

func countRows(t *testing.T, s *store.Store, table string) int {
	t.Helper()

	var n int
	require.NoError(t, s.DB().Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

// steppingClock returns a clock that advances by step on every call
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(step)
		return now
	}
}

// recordingNotifier keeps every event it is handed
type recordingNotifier struct {
	mu     sync.Mutex
	events []NotificationEvent
}

func (n *recordingNotifier) Notify(ctx context.Context, event *NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, *event)
}

func (n *recordingNotifier) types() []EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]EventType, len(n.events))
	for i, e := range n.events {
		types[i] = e.Type
	}
	return types
}

func newTestManager(t *testing.T, s *store.Store, config Config, opts ManagerOptions) *Manager {
	t.Helper()

	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = steppingClock(baseTime, time.Minute)
	}
	m, err := NewManager(s, config, opts)
	require.NoError(t, err)
	return m
}

func completedRecord(id string, createdAt time.Time) BackupRecord {
	return BackupRecord{
		ID:            id,
		FileName:      ArtifactFileName(KindManual, createdAt, CompressionTypeNone),
		FileSizeBytes: 1024,
		Kind:          KindManual,
		Status:        StatusCompleted,
		StatsSnapshot: Stats{"departments": 2},
		CreatedAt:     createdAt,
	}
}

func failedRecord(id string, createdAt time.Time) BackupRecord {
	return BackupRecord{
		ID:            id,
		FileName:      ArtifactFileName(KindAutomatic, createdAt, CompressionTypeNone),
		Kind:          KindAutomatic,
		Status:        StatusFailed,
		StatsSnapshot: Stats{},
		ErrorMessage:  strPtr("collection failed"),
		CreatedAt:     createdAt,
	}
}
