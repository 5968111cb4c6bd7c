package backup

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for export, restore and retention
type Metrics struct {
	backupsTotal          *prometheus.CounterVec
	backupSizeBytes       prometheus.Histogram
	backupDuration        prometheus.Histogram
	restoresTotal         *prometheus.CounterVec
	restoreRecordsTotal   *prometheus.CounterVec
	retentionDeletedTotal prometheus.Counter
	archiveFailuresTotal  prometheus.Counter
}

// NewMetrics registers the collectors with reg. A nil reg keeps them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		backupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "backups_total",
			Help: "Total number of export attempts by kind and status",
		}, []string{"kind", "status"}),

		backupSizeBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "backup_size_bytes",
			Help:    "Size of completed backup artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),

		backupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "backup_duration_seconds",
			Help:    "Export duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		restoresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "restores_total",
			Help: "Total number of restore invocations by guard decision",
		}, []string{"accepted"}),

		restoreRecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "restore_records_total",
			Help: "Restored records by entity group and result",
		}, []string{"group", "result"}),

		retentionDeletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "retention_deleted_total",
			Help: "Total number of backup records deleted by retention",
		}),

		archiveFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "backup_archive_failures_total",
			Help: "Total number of failed archive copy or delete operations",
		}),
	}
}

// RecordExport counts one export attempt
func (m *Metrics) RecordExport(kind Kind, status Status, size int64, duration time.Duration) {
	if m == nil {
		return
	}
	m.backupsTotal.WithLabelValues(string(kind), string(status)).Inc()
	m.backupDuration.Observe(duration.Seconds())
	if status == StatusCompleted {
		m.backupSizeBytes.Observe(float64(size))
	}
}

// RecordRestore counts one restore invocation
func (m *Metrics) RecordRestore(accepted bool) {
	if m == nil {
		return
	}
	m.restoresTotal.WithLabelValues(strconv.FormatBool(accepted)).Inc()
}

// RecordRestoreRecord counts one record apply; it matches snapshot.RecordObserver
func (m *Metrics) RecordRestoreRecord(group, result string) {
	if m == nil {
		return
	}
	m.restoreRecordsTotal.WithLabelValues(group, result).Inc()
}

// RecordRetention counts deleted records
func (m *Metrics) RecordRetention(deleted int) {
	if m == nil || deleted <= 0 {
		return
	}
	m.retentionDeletedTotal.Add(float64(deleted))
}

// RecordArchiveFailure counts one failed archive operation
func (m *Metrics) RecordArchiveFailure() {
	if m == nil {
		return
	}
	m.archiveFailuresTotal.Inc()
}
