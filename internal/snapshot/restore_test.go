package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"risk-register-backup/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	deptFIN = `{"id":"dep-fin","code":"FIN","nameEn":"Finance","nameAr":"","description":null,"createdAt":"2024-03-01T08:00:00Z","updatedAt":"2024-03-01T08:00:00Z"}`
	catOPS  = `{"id":"cat-ops","code":"OPS","nameEn":"Operational","nameAr":"","description":null,"createdAt":"2024-03-01T08:00:00Z","updatedAt":"2024-03-01T08:00:00Z"}`
	stOPEN  = `{"id":"st-open","code":"OPEN","nameEn":"Open","nameAr":"","sortOrder":1,"isClosed":false,"createdAt":"2024-03-01T08:00:00Z","updatedAt":"2024-03-01T08:00:00Z"}`
)

func riskJSON(id, number, dept string) string {
	return `{"id":"` + id + `","riskNumber":"` + number + `","titleEn":"Outage","titleAr":"","description":null,` +
		`"departmentId":"` + dept + `","categoryId":"cat-ops","statusId":"st-open","sourceId":null,"ownerId":null,` +
		`"inherentLikelihood":3,"inherentImpact":4,"residualLikelihood":null,"residualImpact":null,` +
		`"identifiedAt":null,"reviewDueAt":null,"createdAt":"2024-03-01T08:00:00Z","updatedAt":"2024-03-01T08:00:00Z"}`
}

func planJSON(id, riskID, dueDate string) string {
	return `{"id":"` + id + `","riskId":"` + riskID + `","title":"Plan ` + id + `","strategy":"mitigate","status":"planned",` +
		`"ownerId":null,"startDate":null,"dueDate":` + dueDate + `,"completedAt":null,` +
		`"createdAt":"2024-03-01T08:00:00Z","updatedAt":"2024-03-01T08:00:00Z"}`
}

func TestRestore_ConcreteScenario(t *testing.T) {
	source := newStore(t)
	seedRegister(t, source)
	data := export(t, source)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 2, doc.Stats["departments"])
	assert.Equal(t, 5, doc.Stats["risks"])
	assert.Equal(t, 3, doc.Stats["treatmentPlans"])

	target := newStore(t)
	outcome := newRestorer(target).Restore(context.Background(), data)

	require.True(t, outcome.Accepted, outcome.Reason)
	assert.Empty(t, outcome.Errors)
	assert.Empty(t, outcome.Skipped)
	assert.Equal(t, 2, outcome.Counts["departments"])
	assert.Equal(t, 5, outcome.Counts["risks"])
	assert.Equal(t, 3, outcome.Counts["treatmentPlans"])

	sourceCounts := tableCounts(t, source)
	targetCounts := tableCounts(t, target)
	for table, n := range sourceCounts {
		if table == "backup_records" {
			continue
		}
		assert.Equal(t, n, targetCounts[table], table)
	}

	risk, err := target.Risks.FindUnique(context.Background(), "risk-2")
	require.NoError(t, err)
	assert.Equal(t, "dep-it", risk.DepartmentID)
	require.NotNil(t, risk.OwnerID)
	assert.Equal(t, "own-1", *risk.OwnerID)
	assert.True(t, risk.IdentifiedAt.Valid)
	assert.True(t, baseTime.Add(-24*time.Hour).Equal(risk.IdentifiedAt.Time))
}

func TestRestore_RestoredUsersHaveNoCredentials(t *testing.T) {
	source := newStore(t)
	seedRegister(t, source)
	data := export(t, source)

	target := newStore(t)
	outcome := newRestorer(target).Restore(context.Background(), data)
	require.True(t, outcome.Accepted)
	require.Empty(t, outcome.Errors)

	var hash string
	require.NoError(t, target.DB().Get(&hash, "SELECT password_hash FROM users WHERE id = 'usr-1'"))
	assert.Empty(t, hash)
}

func TestRestore_Idempotent(t *testing.T) {
	source := newStore(t)
	seedRegister(t, source)
	data := export(t, source)

	target := newStore(t)
	restorer := newRestorer(target)

	first := restorer.Restore(context.Background(), data)
	require.True(t, first.Accepted)
	require.Empty(t, first.Errors)
	afterFirst := tableCounts(t, target)

	second := restorer.Restore(context.Background(), data)
	require.True(t, second.Accepted)
	require.Empty(t, second.Errors)
	afterSecond := tableCounts(t, target)

	assert.Equal(t, afterFirst, afterSecond)

	// keyed groups are re-applied, history is left as is
	assert.Equal(t, first.Counts["risks"], second.Counts["risks"])
	assert.Equal(t, 1, first.Counts["comments"])
	assert.Equal(t, 0, second.Counts["comments"])
	assert.Equal(t, 1, second.Existing["comments"])
	assert.Equal(t, 1, second.Existing["auditEntries"])
}

func TestRestore_UpsertOverwritesMutableFields(t *testing.T) {
	ctx := context.Background()
	target := newStore(t)

	outcome := newRestorer(target).Restore(ctx, document(t, rawGroup("departments", deptFIN)))
	require.Empty(t, outcome.Errors)

	renamed := strings.Replace(deptFIN, `"nameEn":"Finance"`, `"nameEn":"Finance & Treasury"`, 1)
	outcome = newRestorer(target).Restore(ctx, document(t, rawGroup("departments", renamed)))
	require.Empty(t, outcome.Errors)
	assert.Equal(t, 1, outcome.Counts["departments"])

	dept, err := target.Departments.FindUnique(ctx, "dep-fin")
	require.NoError(t, err)
	assert.Equal(t, "Finance & Treasury", dept.NameEn)
}

func TestRestore_NaturalKeyClashIsRecordError(t *testing.T) {
	ctx := context.Background()
	target := newStore(t)

	other := strings.Replace(deptFIN, `"id":"dep-fin"`, `"id":"dep-fin-2"`, 1)
	other = strings.Replace(other, `"nameEn":"Finance"`, `"nameEn":"Shadow Finance"`, 1)
	outcome := newRestorer(target).Restore(ctx, document(t, rawGroup("departments", deptFIN, other)))

	require.True(t, outcome.Accepted)
	assert.Equal(t, 1, outcome.Counts["departments"])
	require.Len(t, outcome.Errors, 1)
	assert.True(t, strings.HasPrefix(outcome.Errors[0], "departments FIN: "), outcome.Errors[0])

	dept, err := target.Departments.FindUnique(ctx, "dep-fin")
	require.NoError(t, err)
	assert.Equal(t, "Finance", dept.NameEn)

	_, err = target.Departments.FindUnique(ctx, "dep-fin-2")
	assert.Error(t, err)
}

func TestRestore_PartialFailureIsolation(t *testing.T) {
	ctx := context.Background()
	target := newStore(t)

	data := document(t,
		rawGroup("departments", deptFIN),
		rawGroup("categories", catOPS),
		rawGroup("riskStatuses", stOPEN),
		rawGroup("risks",
			riskJSON("risk-1", "RSK-001", "dep-fin"),
			riskJSON("risk-2", "RSK-002", "dep-missing"),
			riskJSON("risk-3", "RSK-003", "dep-fin"),
		),
		rawGroup("treatmentPlans", planJSON("plan-1", "risk-1", "null"), planJSON("plan-3", "risk-3", "null")),
	)

	outcome := newRestorer(target).Restore(ctx, data)

	require.True(t, outcome.Accepted)
	require.Len(t, outcome.Errors, 1)
	assert.True(t, strings.HasPrefix(outcome.Errors[0], "risks RSK-002: "), outcome.Errors[0])
	require.Len(t, outcome.Failures(), 1)
	assert.Equal(t, "risks", outcome.Failures()[0].Group)
	assert.Equal(t, "RSK-002", outcome.Failures()[0].Key)

	assert.Equal(t, 2, outcome.Counts["risks"])
	assert.Equal(t, 2, outcome.Counts["treatmentPlans"])

	n, err := target.Risks.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRestore_GuardRejectsWithoutMutation(t *testing.T) {
	valid := document(t, rawGroup("departments", deptFIN))

	var asMap map[string]interface{}
	require.NoError(t, json.Unmarshal(valid, &asMap))

	mutate := func(fn func(m map[string]interface{})) []byte {
		copied := make(map[string]interface{}, len(asMap))
		for k, v := range asMap {
			copied[k] = v
		}
		fn(copied)
		data, err := json.Marshal(copied)
		require.NoError(t, err)
		return data
	}

	tests := []struct {
		name   string
		raw    []byte
		reason string
	}{
		{"not json", []byte("PK\x03\x04 zip"), "not a JSON object"},
		{"array", []byte(`[1,2]`), "not a JSON object"},
		{"missing entityGroups", mutate(func(m map[string]interface{}) { delete(m, "entityGroups") }), "entityGroups is missing"},
		{"null entityGroups", mutate(func(m map[string]interface{}) { m["entityGroups"] = nil }), "entityGroups is missing"},
		{"missing formatVersion", mutate(func(m map[string]interface{}) { delete(m, "formatVersion") }), "formatVersion is missing"},
		{"foreign origin", mutate(func(m map[string]interface{}) { m["systemIdentifier"] = "notes-server" }), "systemIdentifier"},
		{"missing origin", mutate(func(m map[string]interface{}) { delete(m, "systemIdentifier") }), "systemIdentifier"},
		{"unsupported version", mutate(func(m map[string]interface{}) { m["formatVersion"] = "1.0" }), "not supported"},
		{"group not an array", mutate(func(m map[string]interface{}) { m["entityGroups"] = map[string]interface{}{"departments": "x"} }), "must be an array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := newStore(t)
			before := tableCounts(t, target)

			outcome := newRestorer(target).Restore(context.Background(), tt.raw)

			assert.False(t, outcome.Accepted)
			assert.Contains(t, outcome.Reason, tt.reason)
			assert.Empty(t, outcome.Counts)
			assert.Equal(t, before, tableCounts(t, target))
		})
	}
}

func TestRestore_AcceptsConfiguredVersionsAndOrigin(t *testing.T) {
	target := newStore(t)
	restorer := NewRestorer(target, RestoreConfig{
		OriginTag:        "acme-risk",
		AcceptedVersions: []string{"2.1", "3.0"},
	}, logging.NewNopLogger())

	doc := Document{
		FormatVersion:    "2.1",
		SystemIdentifier: "acme-risk/legacy",
		EntityGroups:     EntityGroups{rawGroup("departments", deptFIN)},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	outcome := restorer.Restore(context.Background(), data)
	require.True(t, outcome.Accepted, outcome.Reason)
	assert.Equal(t, 1, outcome.Counts["departments"])

	// the default origin tag no longer matches
	rejected := restorer.Restore(context.Background(), document(t, rawGroup("departments", deptFIN)))
	assert.False(t, rejected.Accepted)
}

func TestRestore_ShuffledGroupsFollowDependencyOrder(t *testing.T) {
	ctx := context.Background()
	target := newStore(t)

	data := document(t,
		rawGroup("treatmentPlans", planJSON("plan-1", "risk-1", "null")),
		rawGroup("risks", riskJSON("risk-1", "RSK-001", "dep-fin")),
		rawGroup("riskStatuses", stOPEN),
		rawGroup("categories", catOPS),
		rawGroup("departments", deptFIN),
	)

	outcome := newRestorer(target).Restore(ctx, data)

	require.True(t, outcome.Accepted)
	require.Empty(t, outcome.Errors)
	assert.Equal(t, 1, outcome.Counts["departments"])
	assert.Equal(t, 1, outcome.Counts["risks"])
	assert.Equal(t, 1, outcome.Counts["treatmentPlans"])

	plan, err := target.TreatmentPlans.FindUnique(ctx, "plan-1")
	require.NoError(t, err)
	risk, err := target.Risks.FindUnique(ctx, plan.RiskID)
	require.NoError(t, err)
	_, err = target.Departments.FindUnique(ctx, risk.DepartmentID)
	require.NoError(t, err)
}

func TestRestore_Dates(t *testing.T) {
	ctx := context.Background()
	target := newStore(t)

	data := document(t,
		rawGroup("departments", deptFIN),
		rawGroup("categories", catOPS),
		rawGroup("riskStatuses", stOPEN),
		rawGroup("risks", riskJSON("risk-1", "RSK-001", "dep-fin")),
		rawGroup("treatmentPlans",
			planJSON("plan-null", "risk-1", "null"),
			planJSON("plan-empty", "risk-1", `""`),
			planJSON("plan-date", "risk-1", `"2024-06-30"`),
			planJSON("plan-bad", "risk-1", `"30/06/2024"`),
		),
	)

	outcome := newRestorer(target).Restore(ctx, data)
	require.True(t, outcome.Accepted)
	assert.Equal(t, 3, outcome.Counts["treatmentPlans"])
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "treatmentPlans Plan plan-bad")
	assert.Contains(t, outcome.Errors[0], "unparseable date")

	empty, err := target.TreatmentPlans.FindUnique(ctx, "plan-empty")
	require.NoError(t, err)
	assert.False(t, empty.DueDate.Valid)

	dated, err := target.TreatmentPlans.FindUnique(ctx, "plan-date")
	require.NoError(t, err)
	require.True(t, dated.DueDate.Valid)
	assert.True(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC).Equal(dated.DueDate.Time))
}

func TestRestore_UnparseableCreatedAtIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewLogger(logging.Config{Level: logging.LogLevelVerbose, Output: &buf, Format: "json"})
	require.NoError(t, err)

	data := strings.Replace(string(document(t, rawGroup("departments", deptFIN))),
		`"createdAt":"2024-03-01T08:00:00Z","systemIdentifier"`, `"createdAt":"not-a-date","systemIdentifier"`, 1)
	require.Contains(t, data, `"not-a-date"`)

	restorer := NewRestorer(newStore(t), DefaultRestoreConfig(), logger)
	outcome := restorer.Restore(context.Background(), []byte(data))

	require.True(t, outcome.Accepted, outcome.Reason)
	assert.Equal(t, 1, outcome.Counts["departments"])
	assert.Contains(t, buf.String(), "Ignoring unparseable snapshot createdAt")
	assert.Contains(t, buf.String(), "not-a-date")
}

func TestRestore_SchemaChecksArePerRecord(t *testing.T) {
	target := newStore(t)

	unknownField := strings.Replace(deptFIN, `"code":"FIN"`, `"code":"OPS2","budget":10`, 1)
	unknownField = strings.Replace(unknownField, `"id":"dep-fin"`, `"id":"dep-2"`, 1)
	missingRequired := `{"id":"dep-3","code":"HR","nameEn":"","createdAt":"2024-03-01T08:00:00Z","updatedAt":"2024-03-01T08:00:00Z"}`
	wrongType := `{"id":"dep-4","code":"LEGAL","nameEn":"Legal","createdAt":12,"updatedAt":"2024-03-01T08:00:00Z"}`
	notObject := `"dep-5"`

	data := document(t, rawGroup("departments", deptFIN, unknownField, missingRequired, wrongType, notObject))
	outcome := newRestorer(target).Restore(context.Background(), data)

	require.True(t, outcome.Accepted)
	assert.Equal(t, 1, outcome.Counts["departments"])
	require.Len(t, outcome.Errors, 4)
	assert.Contains(t, outcome.Errors[0], "departments OPS2")
	assert.Contains(t, outcome.Errors[0], `unknown field "budget"`)
	assert.Contains(t, outcome.Errors[1], "departments HR: nameEn is required")
	assert.Contains(t, outcome.Errors[2], "departments LEGAL")
	assert.Contains(t, outcome.Errors[3], "departments (unreadable record)")
}

func TestRestore_UnknownGroupsAreSkipped(t *testing.T) {
	target := newStore(t)

	data := document(t,
		rawGroup("departments", deptFIN),
		rawGroup("dashboards", `{"id":"x"}`),
	)
	outcome := newRestorer(target).Restore(context.Background(), data)

	require.True(t, outcome.Accepted)
	assert.Empty(t, outcome.Errors)
	assert.Equal(t, []string{"dashboards"}, outcome.Skipped)
	assert.NotContains(t, outcome.Counts, "dashboards")
}

func TestRestore_RunsToCompletionAfterCancel(t *testing.T) {
	target := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := newRestorer(target).Restore(ctx, document(t,
		rawGroup("departments", deptFIN),
		rawGroup("categories", catOPS),
	))

	require.True(t, outcome.Accepted)
	assert.Empty(t, outcome.Errors)
	assert.Equal(t, 1, outcome.Counts["categories"])
}

func TestRestore_ObserverSeesEveryRecord(t *testing.T) {
	target := newStore(t)
	restorer := newRestorer(target)

	results := map[string]int{}
	restorer.SetObserver(func(group, result string) {
		results[group+"/"+result]++
	})

	data := document(t,
		rawGroup("departments", deptFIN),
		rawGroup("risks", riskJSON("risk-1", "RSK-001", "dep-fin")),
	)
	restorer.Restore(context.Background(), data)

	assert.Equal(t, map[string]int{"departments/applied": 1, "risks/failed": 1}, results)
}

func TestCheck_DoesNotWrite(t *testing.T) {
	target := newStore(t)
	before := tableCounts(t, target)

	outcome := newRestorer(target).Check(document(t,
		rawGroup("departments", deptFIN, `{"id":"broken"}`),
		rawGroup("dashboards"),
	))

	require.True(t, outcome.Accepted)
	assert.Equal(t, 1, outcome.Counts["departments"])
	assert.Len(t, outcome.Errors, 1)
	assert.Equal(t, []string{"dashboards"}, outcome.Skipped)
	assert.Equal(t, before, tableCounts(t, target))

	assert.False(t, newRestorer(target).Check([]byte(`{}`)).Accepted)
}
