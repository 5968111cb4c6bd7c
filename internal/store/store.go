package store

import (
	"risk-register-backup/internal/entity"

	"github.com/jmoiron/sqlx"
)

// Store holds one table per entity type taking part in snapshots
type Store struct {
	db *sqlx.DB

	Departments        *Table[entity.Department]
	Categories         *Table[entity.Category]
	RiskStatuses       *Table[entity.RiskStatus]
	RiskSources        *Table[entity.RiskSource]
	ImpactCriteria     *Table[entity.ImpactCriterion]
	LikelihoodCriteria *Table[entity.LikelihoodCriterion]
	Users              *Table[entity.User]
	RiskOwners         *Table[entity.RiskOwner]
	Risks              *Table[entity.Risk]
	TreatmentPlans     *Table[entity.TreatmentPlan]
	TreatmentTasks     *Table[entity.TreatmentTask]
	TreatmentSteps     *Table[entity.TreatmentStep]
	TaskUpdates        *Table[entity.TaskUpdate]
	RiskAssessments    *Table[entity.RiskAssessment]
	Comments           *Table[entity.Comment]
	Discussions        *Table[entity.Discussion]
	ChangeLogs         *Table[entity.ChangeLog]
	Notifications      *Table[entity.Notification]
	AuditEntries       *Table[entity.AuditEntry]
	DirectMessages     *Table[entity.DirectMessage]
}

// New binds every entity table to db
func New(db *sqlx.DB) *Store {
	return &Store{
		db:                 db,
		Departments:        NewTable[entity.Department](db, "departments"),
		Categories:         NewTable[entity.Category](db, "categories"),
		RiskStatuses:       NewTable[entity.RiskStatus](db, "risk_statuses"),
		RiskSources:        NewTable[entity.RiskSource](db, "risk_sources"),
		ImpactCriteria:     NewTable[entity.ImpactCriterion](db, "impact_criteria"),
		LikelihoodCriteria: NewTable[entity.LikelihoodCriterion](db, "likelihood_criteria"),
		Users:              NewTable[entity.User](db, "users"),
		RiskOwners:         NewTable[entity.RiskOwner](db, "risk_owners"),
		Risks:              NewTable[entity.Risk](db, "risks"),
		TreatmentPlans:     NewTable[entity.TreatmentPlan](db, "treatment_plans"),
		TreatmentTasks:     NewTable[entity.TreatmentTask](db, "treatment_tasks"),
		TreatmentSteps:     NewTable[entity.TreatmentStep](db, "treatment_steps"),
		TaskUpdates:        NewTable[entity.TaskUpdate](db, "task_updates"),
		RiskAssessments:    NewTable[entity.RiskAssessment](db, "risk_assessments"),
		Comments:           NewTable[entity.Comment](db, "comments"),
		Discussions:        NewTable[entity.Discussion](db, "discussions"),
		ChangeLogs:         NewTable[entity.ChangeLog](db, "change_logs"),
		Notifications:      NewTable[entity.Notification](db, "notifications"),
		AuditEntries:       NewTable[entity.AuditEntry](db, "audit_entries"),
		DirectMessages:     NewTable[entity.DirectMessage](db, "direct_messages"),
	}
}

// DB returns the underlying connection
func (s *Store) DB() *sqlx.DB {
	return s.db
}
