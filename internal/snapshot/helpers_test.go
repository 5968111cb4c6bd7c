package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
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

func newStore(t *testing.T) *store.Store {
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

// seedRegister fills s with 2 departments, 5 risks and 3 treatment plans plus
// the reference and history rows they hang off.
func seedRegister(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := context.Background()
	at := baseTime

	for _, d := range []entity.Department{
		{ID: "dep-fin", Code: "FIN", NameEn: "Finance", NameAr: "المالية", CreatedAt: at, UpdatedAt: at},
		{ID: "dep-it", Code: "IT", NameEn: "Information Technology", CreatedAt: at, UpdatedAt: at},
	} {
		require.NoError(t, s.Departments.Create(ctx, d))
	}
	require.NoError(t, s.Categories.Create(ctx, entity.Category{ID: "cat-ops", Code: "OPS", NameEn: "Operational", CreatedAt: at, UpdatedAt: at}))
	require.NoError(t, s.RiskStatuses.Create(ctx, entity.RiskStatus{ID: "st-open", Code: "OPEN", NameEn: "Open", SortOrder: 1, CreatedAt: at, UpdatedAt: at}))
	require.NoError(t, s.RiskSources.Create(ctx, entity.RiskSource{ID: "src-audit", Code: "AUDIT", NameEn: "Internal audit", CreatedAt: at, UpdatedAt: at}))
	require.NoError(t, s.ImpactCriteria.Create(ctx, entity.ImpactCriterion{Criterion: entity.Criterion{ID: "imp-3", Level: 3, NameEn: "Moderate", CreatedAt: at, UpdatedAt: at}}))
	require.NoError(t, s.LikelihoodCriteria.Create(ctx, entity.LikelihoodCriterion{Criterion: entity.Criterion{ID: "lik-4", Level: 4, NameEn: "Likely", CreatedAt: at, UpdatedAt: at}}))

	require.NoError(t, s.Users.Create(ctx, entity.User{
		ID: "usr-1", Email: "manager@example.com", FullName: "Risk Manager", Role: "risk_manager",
		DepartmentID: strPtr("dep-fin"), IsActive: true, LastLoginAt: entity.NewDate(at),
		CreatedAt: at, UpdatedAt: at,
	}))
	_, err := s.DB().Exec("UPDATE users SET password_hash = 'argon2id$secret' WHERE id = 'usr-1'")
	require.NoError(t, err)

	require.NoError(t, s.RiskOwners.Create(ctx, entity.RiskOwner{
		ID: "own-1", FullName: "Owner One", Email: "owner@example.com",
		DepartmentID: strPtr("dep-it"), UserID: strPtr("usr-1"), CreatedAt: at, UpdatedAt: at,
	}))

	for i := 1; i <= 5; i++ {
		dept := "dep-fin"
		if i%2 == 0 {
			dept = "dep-it"
		}
		require.NoError(t, s.Risks.Create(ctx, entity.Risk{
			ID: fmt.Sprintf("risk-%d", i), RiskNumber: fmt.Sprintf("RSK-%03d", i), TitleEn: fmt.Sprintf("Risk %d", i),
			DepartmentID: dept, CategoryID: "cat-ops", StatusID: "st-open",
			SourceID: strPtr("src-audit"), OwnerID: strPtr("own-1"),
			InherentLikelihood: 4, InherentImpact: 3,
			IdentifiedAt: entity.NewDate(at.Add(-24 * time.Hour)),
			CreatedAt:    at.Add(time.Duration(i) * time.Minute), UpdatedAt: at,
		}))
	}

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.TreatmentPlans.Create(ctx, entity.TreatmentPlan{
			ID: fmt.Sprintf("plan-%d", i), RiskID: fmt.Sprintf("risk-%d", i), Title: fmt.Sprintf("Plan %d", i),
			Strategy: "mitigate", Status: "planned", OwnerID: strPtr("own-1"),
			DueDate: entity.NewDate(at.Add(30 * 24 * time.Hour)), CreatedAt: at, UpdatedAt: at,
		}))
	}
	require.NoError(t, s.TreatmentTasks.Create(ctx, entity.TreatmentTask{ID: "task-1", PlanID: "plan-1", Title: "Replicate DB", Status: "in_progress", AssigneeID: strPtr("usr-1"), CreatedAt: at, UpdatedAt: at}))
	require.NoError(t, s.TreatmentSteps.Create(ctx, entity.TreatmentStep{ID: "step-1", TaskID: "task-1", Description: "Provision replica", CreatedAt: at, UpdatedAt: at}))
	require.NoError(t, s.TaskUpdates.Create(ctx, entity.TaskUpdate{ID: "upd-1", TaskID: "task-1", AuthorID: strPtr("usr-1"), Body: "Replica provisioned", Progress: 40, CreatedAt: at}))
	require.NoError(t, s.RiskAssessments.Create(ctx, entity.RiskAssessment{ID: "asm-1", RiskID: "risk-1", AssessorID: strPtr("usr-1"), Likelihood: 4, Impact: 3, Score: 12, AssessedAt: at, CreatedAt: at}))
	require.NoError(t, s.Comments.Create(ctx, entity.Comment{ID: "cmt-1", RiskID: "risk-1", AuthorID: strPtr("usr-1"), Body: "Escalated", CreatedAt: at}))
	require.NoError(t, s.Discussions.Create(ctx, entity.Discussion{ID: "dsc-1", RiskID: "risk-2", Title: "Scope", Body: "Does this cover DR?", CreatedAt: at}))
	require.NoError(t, s.ChangeLogs.Create(ctx, entity.ChangeLog{ID: "chg-1", RiskID: strPtr("risk-1"), UserID: strPtr("usr-1"), Action: "update", FieldName: strPtr("status"), OldValue: strPtr("new"), NewValue: strPtr("open"), CreatedAt: at}))
	require.NoError(t, s.Notifications.Create(ctx, entity.Notification{ID: "ntf-1", UserID: "usr-1", Kind: "risk.assigned", Title: "New risk", CreatedAt: at}))
	require.NoError(t, s.AuditEntries.Create(ctx, entity.AuditEntry{ID: "aud-1", UserID: strPtr("usr-1"), Action: "login", EntityType: "session", CreatedAt: at}))
	require.NoError(t, s.DirectMessages.Create(ctx, entity.DirectMessage{ID: "dm-1", SenderID: "usr-1", RecipientID: "usr-1", Body: "note to self", CreatedAt: at}))
}

// export collects and assembles s into an encoded document
func export(t *testing.T, s *store.Store) []byte {
	t.Helper()

	collection, err := NewCollector(s, 0, logging.NewNopLogger()).Collect(context.Background())
	require.NoError(t, err)
	doc, err := NewAssembler("").Assemble(collection, baseTime.Add(time.Hour))
	require.NoError(t, err)
	data, err := doc.Encode()
	require.NoError(t, err)
	return data
}

// tableCounts returns the row count of every registered table
func tableCounts(t *testing.T, s *store.Store) map[string]int {
	t.Helper()

	counts := make(map[string]int)
	for _, table := range database.Tables {
		var n int
		require.NoError(t, s.DB().Get(&n, "SELECT COUNT(*) FROM "+table))
		counts[table] = n
	}
	return counts
}

// document builds a raw document from group name to records, in the given order
func document(t *testing.T, groups ...EntityGroup) []byte {
	t.Helper()

	doc := Document{
		FormatVersion:    FormatVersion,
		CreatedAt:        baseTime,
		SystemIdentifier: SystemIdentifier,
		EntityGroups:     groups,
		Stats:            map[string]int{},
	}
	for _, g := range groups {
		doc.Stats[g.Name] = len(g.Records)
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func rawGroup(name string, records ...string) EntityGroup {
	raws := make([]json.RawMessage, len(records))
	for i, r := range records {
		raws[i] = json.RawMessage(r)
	}
	return EntityGroup{Name: name, Records: raws}
}

func newRestorer(s *store.Store) *Restorer {
	return NewRestorer(s, DefaultRestoreConfig(), logging.NewNopLogger())
}
