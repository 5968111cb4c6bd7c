package backup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"risk-register-backup/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExporter struct {
	mu       sync.Mutex
	requests []ExportRequest
	err      error
}

func (e *countingExporter) Export(ctx context.Context, req ExportRequest) (*Artifact, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)
	if e.err != nil {
		return nil, e.err
	}
	return &Artifact{FileName: "a.json", Record: &BackupRecord{ID: "rec"}}, nil
}

func (e *countingExporter) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests)
}

func TestScheduler_RunsAutomaticExportsUntilCancelled(t *testing.T) {
	exporter := &countingExporter{}
	scheduler := NewScheduler(exporter, 10*time.Millisecond, logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx) }()

	assert.Eventually(t, func() bool { return exporter.calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}

	exporter.mu.Lock()
	defer exporter.mu.Unlock()
	for _, req := range exporter.requests {
		assert.Equal(t, ExportRequest{Kind: KindAutomatic}, req)
	}
}

func TestScheduler_KeepsRunningAfterFailedExport(t *testing.T) {
	exporter := &countingExporter{err: NewCollectionError("table missing", nil).WithContext("group", "risks")}
	scheduler := NewScheduler(exporter, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = scheduler.Run(ctx) }()

	assert.Eventually(t, func() bool { return exporter.calls() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_RejectsNonPositiveInterval(t *testing.T) {
	err := NewScheduler(&countingExporter{}, 0, logging.NewNopLogger()).Run(context.Background())
	require.Error(t, err)

	var backupErr *BackupError
	require.True(t, errors.As(err, &backupErr))
	assert.Equal(t, BackupErrorTypeConfiguration, backupErr.Type)
}
