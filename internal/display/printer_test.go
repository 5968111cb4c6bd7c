package display

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"risk-register-backup/internal/backup"
	"risk-register-backup/internal/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var createdAt = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func sampleRecords() []backup.BackupRecord {
	return []backup.BackupRecord{
		{
			ID: "rec-2", FileName: "b.json", FileSizeBytes: 2048, Kind: backup.KindManual, Status: backup.StatusCompleted,
			CreatedByUserID: strPtr("user-7"), StatsSnapshot: backup.Stats{"departments": 2, "risks": 5}, CreatedAt: createdAt,
		},
		{
			ID: "rec-1", FileName: "a.json", Kind: backup.KindAutomatic, Status: backup.StatusFailed,
			ErrorMessage: strPtr("collection failed"), CreatedAt: createdAt.Add(-time.Hour),
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, value := range []string{"", "table", "json", "yaml"} {
		_, err := ParseFormat(value)
		assert.NoError(t, err, value)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestPrinter_RecordsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, true).Records(sampleRecords()))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6, out)
	assert.Contains(t, lines[1], "ID")
	assert.Contains(t, lines[3], "rec-2")
	assert.Contains(t, lines[3], "2.0 KiB")
	assert.Contains(t, lines[3], "user-7")
	assert.Contains(t, lines[3], " 7 ")
	assert.Contains(t, lines[4], "collection failed")
	assert.NotContains(t, out, "\x1b[", "a buffer is never a color terminal")
}

func TestPrinter_RecordsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Records(nil))
	assert.Equal(t, "No backups recorded.\n", buf.String())

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatJSON, false).Records(nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestPrinter_RecordsJSONAndYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatJSON, false).Records(sampleRecords()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "rec-2", decoded[0]["id"])
	assert.Equal(t, "manual", decoded[0]["backupKind"])
	assert.Nil(t, decoded[1]["createdByUserId"])

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatYAML, false).Records(sampleRecords()))
	var fromYAML []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.Equal(t, "failed", fromYAML[1]["status"])
}

func TestPrinter_OutcomeOrdersGroupsByRestoreOrder(t *testing.T) {
	outcome := &snapshot.RestoreOutcome{
		Accepted: true,
		Counts:   map[string]int{"risks": 5, "departments": 2, "comments": 1},
		Existing: map[string]int{"comments": 3},
		Errors:   []string{"risks[5] (r-5): category does not exist"},
		Skipped:  []string{"legacyWidgets"},
	}

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Outcome(outcome, false))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Restore applied: 8 records with 1 errors\n"), out)
	dep := strings.Index(out, "departments")
	risks := strings.Index(out, "risks ")
	comments := strings.Index(out, "comments")
	assert.True(t, dep < risks && risks < comments, out)
	assert.Contains(t, out, "Skipped unknown groups: [legacyWidgets]")
	assert.Contains(t, out, "x risks[5] (r-5): category does not exist")
}

func TestPrinter_OutcomeRejected(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Outcome(snapshot.Rejected("unsupported version 9.0"), false))
	assert.Equal(t, "Restore rejected: unsupported version 9.0\n", buf.String())

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatJSON, false).Outcome(snapshot.Rejected("unsupported version 9.0"), true))
	var body map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "unsupported version 9.0", body["reason"])
}

func TestPrinter_Retention(t *testing.T) {
	records := sampleRecords()
	result := &backup.RetentionResult{
		TotalBackupsProcessed: 4,
		BackupsDeleted:        1,
		BackupsKept:           3,
		DeletedBackups:        records[:1],
		Errors:                []string{"archive delete failed for b.json"},
		DryRun:                true,
	}

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Retention(result))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Would delete 1 of 4 completed backups, keeping 3\n"), out)
	assert.Contains(t, out, "rec-2")
	assert.Contains(t, out, "! archive delete failed for b.json")
}

func TestPrinter_Artifact(t *testing.T) {
	artifact := &backup.Artifact{FileName: "b.json", Record: &sampleRecords()[0]}

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatTable, false).Artifact(artifact, "/tmp/b.json"))
	assert.Contains(t, buf.String(), "Backup written to /tmp/b.json (2.0 KiB, rec-2)")
	assert.Contains(t, buf.String(), "departments")

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatJSON, false).Artifact(artifact, "/tmp/b.json"))
	var body struct {
		Path   string              `json:"path"`
		Record backup.BackupRecord `json:"record"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &body))
	assert.Equal(t, "/tmp/b.json", body.Path)
	assert.Equal(t, "rec-2", body.Record.ID)
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "0 B", HumanBytes(0))
	assert.Equal(t, "1023 B", HumanBytes(1023))
	assert.Equal(t, "1.5 KiB", HumanBytes(1536))
	assert.Equal(t, "3.0 MiB", HumanBytes(3<<20))
}
