// Package entity defines the typed records of the risk register that take
// part in snapshots. Field tags drive three layers: db (sqlx column mapping),
// json (snapshot wire format) and validate (schema checks on restore).
package entity

import (
	"strconv"
	"time"
)

// Record is implemented by every entity that can be exported and restored
type Record interface {
	// RecordID returns the primary key
	RecordID() string
	// NaturalKey returns the business identifier used in error messages
	NaturalKey() string
}

type Department struct {
	ID          string    `db:"id" json:"id" validate:"required,max=64"`
	Code        string    `db:"code" json:"code" validate:"required,max=64"`
	NameEn      string    `db:"name_en" json:"nameEn" validate:"required,max=255"`
	NameAr      string    `db:"name_ar" json:"nameAr" validate:"max=255"`
	Description *string   `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt" validate:"required"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt" validate:"required"`
}

func (d Department) RecordID() string   { return d.ID }
func (d Department) NaturalKey() string { return d.Code }

type Category struct {
	ID          string    `db:"id" json:"id" validate:"required,max=64"`
	Code        string    `db:"code" json:"code" validate:"required,max=64"`
	NameEn      string    `db:"name_en" json:"nameEn" validate:"required,max=255"`
	NameAr      string    `db:"name_ar" json:"nameAr" validate:"max=255"`
	Description *string   `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt" validate:"required"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt" validate:"required"`
}

func (c Category) RecordID() string   { return c.ID }
func (c Category) NaturalKey() string { return c.Code }

type RiskStatus struct {
	ID        string    `db:"id" json:"id" validate:"required,max=64"`
	Code      string    `db:"code" json:"code" validate:"required,max=64"`
	NameEn    string    `db:"name_en" json:"nameEn" validate:"required,max=255"`
	NameAr    string    `db:"name_ar" json:"nameAr" validate:"max=255"`
	SortOrder int       `db:"sort_order" json:"sortOrder" validate:"min=0"`
	IsClosed  bool      `db:"is_closed" json:"isClosed"`
	CreatedAt time.Time `db:"created_at" json:"createdAt" validate:"required"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt" validate:"required"`
}

func (s RiskStatus) RecordID() string   { return s.ID }
func (s RiskStatus) NaturalKey() string { return s.Code }

type RiskSource struct {
	ID        string    `db:"id" json:"id" validate:"required,max=64"`
	Code      string    `db:"code" json:"code" validate:"required,max=64"`
	NameEn    string    `db:"name_en" json:"nameEn" validate:"required,max=255"`
	NameAr    string    `db:"name_ar" json:"nameAr" validate:"max=255"`
	CreatedAt time.Time `db:"created_at" json:"createdAt" validate:"required"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt" validate:"required"`
}

func (s RiskSource) RecordID() string   { return s.ID }
func (s RiskSource) NaturalKey() string { return s.Code }

// Criterion is one row of a scoring scale (impact or likelihood)
type Criterion struct {
	ID          string    `db:"id" json:"id" validate:"required,max=64"`
	Level       int       `db:"level" json:"level" validate:"min=1,max=10"`
	NameEn      string    `db:"name_en" json:"nameEn" validate:"required,max=255"`
	NameAr      string    `db:"name_ar" json:"nameAr" validate:"max=255"`
	Description *string   `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt" validate:"required"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt" validate:"required"`
}

func (c Criterion) RecordID() string   { return c.ID }
func (c Criterion) NaturalKey() string { return "level " + strconv.Itoa(c.Level) }

// ImpactCriterion and LikelihoodCriterion share a shape but live in separate tables.
type (
	ImpactCriterion     struct{ Criterion }
	LikelihoodCriterion struct{ Criterion }
)

// User carries no credential fields: password hashes stay in the database.
type User struct {
	ID           string    `db:"id" json:"id" validate:"required,max=64"`
	Email        string    `db:"email" json:"email" validate:"required,email,max=255"`
	FullName     string    `db:"full_name" json:"fullName" validate:"required,max=255"`
	Role         string    `db:"role" json:"role" validate:"required,oneof=admin risk_manager risk_owner viewer"`
	DepartmentID *string   `db:"department_id" json:"departmentId"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	LastLoginAt  Date      `db:"last_login_at" json:"lastLoginAt"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt" validate:"required"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt" validate:"required"`
}

func (u User) RecordID() string   { return u.ID }
func (u User) NaturalKey() string { return u.Email }

type RiskOwner struct {
	ID           string    `db:"id" json:"id" validate:"required,max=64"`
	FullName     string    `db:"full_name" json:"fullName" validate:"required,max=255"`
	Email        string    `db:"email" json:"email" validate:"required,email,max=255"`
	DepartmentID *string   `db:"department_id" json:"departmentId"`
	UserID       *string   `db:"user_id" json:"userId"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt" validate:"required"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt" validate:"required"`
}

func (o RiskOwner) RecordID() string   { return o.ID }
func (o RiskOwner) NaturalKey() string { return o.Email }

type Risk struct {
	ID                 string    `db:"id" json:"id" validate:"required,max=64"`
	RiskNumber         string    `db:"risk_number" json:"riskNumber" validate:"required,max=32"`
	TitleEn            string    `db:"title_en" json:"titleEn" validate:"required,max=255"`
	TitleAr            string    `db:"title_ar" json:"titleAr" validate:"max=255"`
	Description        *string   `db:"description" json:"description"`
	DepartmentID       string    `db:"department_id" json:"departmentId" validate:"required"`
	CategoryID         string    `db:"category_id" json:"categoryId" validate:"required"`
	StatusID           string    `db:"status_id" json:"statusId" validate:"required"`
	SourceID           *string   `db:"source_id" json:"sourceId"`
	OwnerID            *string   `db:"owner_id" json:"ownerId"`
	InherentLikelihood int       `db:"inherent_likelihood" json:"inherentLikelihood" validate:"min=1,max=10"`
	InherentImpact     int       `db:"inherent_impact" json:"inherentImpact" validate:"min=1,max=10"`
	ResidualLikelihood *int      `db:"residual_likelihood" json:"residualLikelihood" validate:"omitempty,min=1,max=10"`
	ResidualImpact     *int      `db:"residual_impact" json:"residualImpact" validate:"omitempty,min=1,max=10"`
	IdentifiedAt       Date      `db:"identified_at" json:"identifiedAt"`
	ReviewDueAt        Date      `db:"review_due_at" json:"reviewDueAt"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt" validate:"required"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt" validate:"required"`
}

func (r Risk) RecordID() string   { return r.ID }
func (r Risk) NaturalKey() string { return r.RiskNumber }

type TreatmentPlan struct {
	ID          string    `db:"id" json:"id" validate:"required,max=64"`
	RiskID      string    `db:"risk_id" json:"riskId" validate:"required"`
	Title       string    `db:"title" json:"title" validate:"required,max=255"`
	Strategy    string    `db:"strategy" json:"strategy" validate:"required,oneof=avoid mitigate transfer accept"`
	Status      string    `db:"status" json:"status" validate:"required,oneof=planned in_progress completed cancelled"`
	OwnerID     *string   `db:"owner_id" json:"ownerId"`
	StartDate   Date      `db:"start_date" json:"startDate"`
	DueDate     Date      `db:"due_date" json:"dueDate"`
	CompletedAt Date      `db:"completed_at" json:"completedAt"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt" validate:"required"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt" validate:"required"`
}

func (p TreatmentPlan) RecordID() string   { return p.ID }
func (p TreatmentPlan) NaturalKey() string { return p.Title }

type TreatmentTask struct {
	ID          string    `db:"id" json:"id" validate:"required,max=64"`
	PlanID      string    `db:"plan_id" json:"planId" validate:"required"`
	Title       string    `db:"title" json:"title" validate:"required,max=255"`
	Status      string    `db:"status" json:"status" validate:"required,oneof=todo in_progress done blocked"`
	AssigneeID  *string   `db:"assignee_id" json:"assigneeId"`
	DueDate     Date      `db:"due_date" json:"dueDate"`
	CompletedAt Date      `db:"completed_at" json:"completedAt"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt" validate:"required"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt" validate:"required"`
}

func (t TreatmentTask) RecordID() string   { return t.ID }
func (t TreatmentTask) NaturalKey() string { return t.Title }

type TreatmentStep struct {
	ID          string    `db:"id" json:"id" validate:"required,max=64"`
	TaskID      string    `db:"task_id" json:"taskId" validate:"required"`
	Description string    `db:"description" json:"description" validate:"required"`
	SortOrder   int       `db:"sort_order" json:"sortOrder" validate:"min=0"`
	IsDone      bool      `db:"is_done" json:"isDone"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt" validate:"required"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt" validate:"required"`
}

func (s TreatmentStep) RecordID() string   { return s.ID }
func (s TreatmentStep) NaturalKey() string { return s.ID }

type TaskUpdate struct {
	ID        string    `db:"id" json:"id" validate:"required,max=64"`
	TaskID    string    `db:"task_id" json:"taskId" validate:"required"`
	AuthorID  *string   `db:"author_id" json:"authorId"`
	Body      string    `db:"body" json:"body" validate:"required"`
	Progress  int       `db:"progress" json:"progress" validate:"min=0,max=100"`
	CreatedAt time.Time `db:"created_at" json:"createdAt" validate:"required"`
}

func (u TaskUpdate) RecordID() string   { return u.ID }
func (u TaskUpdate) NaturalKey() string { return u.ID }

type RiskAssessment struct {
	ID         string    `db:"id" json:"id" validate:"required,max=64"`
	RiskID     string    `db:"risk_id" json:"riskId" validate:"required"`
	AssessorID *string   `db:"assessor_id" json:"assessorId"`
	Likelihood int       `db:"likelihood" json:"likelihood" validate:"min=1,max=10"`
	Impact     int       `db:"impact" json:"impact" validate:"min=1,max=10"`
	Score      int       `db:"score" json:"score" validate:"min=1"`
	Notes      *string   `db:"notes" json:"notes"`
	AssessedAt time.Time `db:"assessed_at" json:"assessedAt" validate:"required"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt" validate:"required"`
}

func (a RiskAssessment) RecordID() string   { return a.ID }
func (a RiskAssessment) NaturalKey() string { return a.ID }

type Comment struct {
	ID        string    `db:"id" json:"id" validate:"required,max=64"`
	RiskID    string    `db:"risk_id" json:"riskId" validate:"required"`
	AuthorID  *string   `db:"author_id" json:"authorId"`
	Body      string    `db:"body" json:"body" validate:"required"`
	CreatedAt time.Time `db:"created_at" json:"createdAt" validate:"required"`
}

func (c Comment) RecordID() string   { return c.ID }
func (c Comment) NaturalKey() string { return c.ID }

type Discussion struct {
	ID        string    `db:"id" json:"id" validate:"required,max=64"`
	RiskID    string    `db:"risk_id" json:"riskId" validate:"required"`
	AuthorID  *string   `db:"author_id" json:"authorId"`
	Title     string    `db:"title" json:"title" validate:"required,max=255"`
	Body      string    `db:"body" json:"body" validate:"required"`
	CreatedAt time.Time `db:"created_at" json:"createdAt" validate:"required"`
}

func (d Discussion) RecordID() string   { return d.ID }
func (d Discussion) NaturalKey() string { return d.ID }

type ChangeLog struct {
	ID        string    `db:"id" json:"id" validate:"required,max=64"`
	RiskID    *string   `db:"risk_id" json:"riskId"`
	UserID    *string   `db:"user_id" json:"userId"`
	Action    string    `db:"action" json:"action" validate:"required,max=64"`
	FieldName *string   `db:"field_name" json:"fieldName"`
	OldValue  *string   `db:"old_value" json:"oldValue"`
	NewValue  *string   `db:"new_value" json:"newValue"`
	CreatedAt time.Time `db:"created_at" json:"createdAt" validate:"required"`
}

func (c ChangeLog) RecordID() string   { return c.ID }
func (c ChangeLog) NaturalKey() string { return c.ID }

type Notification struct {
	ID        string    `db:"id" json:"id" validate:"required,max=64"`
	UserID    string    `db:"user_id" json:"userId" validate:"required"`
	Kind      string    `db:"kind" json:"kind" validate:"required,max=64"`
	Title     string    `db:"title" json:"title" validate:"required,max=255"`
	Body      *string   `db:"body" json:"body"`
	Link      *string   `db:"link" json:"link" validate:"omitempty,max=512"`
	IsRead    bool      `db:"is_read" json:"isRead"`
	CreatedAt time.Time `db:"created_at" json:"createdAt" validate:"required"`
}

func (n Notification) RecordID() string   { return n.ID }
func (n Notification) NaturalKey() string { return n.ID }

type AuditEntry struct {
	ID         string    `db:"id" json:"id" validate:"required,max=64"`
	UserID     *string   `db:"user_id" json:"userId"`
	Action     string    `db:"action" json:"action" validate:"required,max=64"`
	EntityType string    `db:"entity_type" json:"entityType" validate:"required,max=64"`
	EntityID   *string   `db:"entity_id" json:"entityId"`
	Details    *string   `db:"details" json:"details"`
	IPAddress  *string   `db:"ip_address" json:"ipAddress"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt" validate:"required"`
}

func (a AuditEntry) RecordID() string   { return a.ID }
func (a AuditEntry) NaturalKey() string { return a.ID }

type DirectMessage struct {
	ID          string    `db:"id" json:"id" validate:"required,max=64"`
	SenderID    string    `db:"sender_id" json:"senderId" validate:"required"`
	RecipientID string    `db:"recipient_id" json:"recipientId" validate:"required"`
	Body        string    `db:"body" json:"body" validate:"required"`
	ReadAt      Date      `db:"read_at" json:"readAt"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt" validate:"required"`
}

func (m DirectMessage) RecordID() string   { return m.ID }
func (m DirectMessage) NaturalKey() string { return m.ID }
