package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"risk-register-backup/internal/entity"
	"risk-register-backup/internal/store"

	"github.com/go-playground/validator/v10"
)

// Mode is how a group's records are written back on restore
type Mode string

const (
	// ModeUpsert updates every mutable field of an existing row, or inserts
	ModeUpsert Mode = "upsert"
	// ModeInsertIfAbsent inserts only when no row has the record's id
	ModeInsertIfAbsent Mode = "insert_if_absent"
)

// DefaultLogGroupLimit caps capped groups on export, most recent first
const DefaultLogGroupLimit = 1000

// applyResult is the effect one record had on the store
type applyResult int

const (
	resultApplied applyResult = iota
	resultExisting
)

// Descriptor is one entry of the restore order
type Descriptor interface {
	Name() string
	Mode() Mode
	// Capped reports whether export keeps only the most recent rows
	Capped() bool

	collect(ctx context.Context, s *store.Store, limit int) ([]entity.Record, error)
	decode(raw json.RawMessage) (entity.Record, error)
	apply(ctx context.Context, s *store.Store, rec entity.Record) (applyResult, error)
	// keyOf pulls a natural key out of a record that failed to decode
	keyOf(raw json.RawMessage) string
}

type group[T entity.Record] struct {
	name     string
	mode     Mode
	capped   bool
	keyField string
	table    func(*store.Store) *store.Table[T]
}

func (g group[T]) Name() string { return g.name }
func (g group[T]) Mode() Mode   { return g.mode }
func (g group[T]) Capped() bool { return g.capped }

func (g group[T]) collect(ctx context.Context, s *store.Store, limit int) ([]entity.Record, error) {
	opts := store.FindOptions{OrderBy: "created_at"}
	if g.capped {
		opts.Descending = true
		opts.Limit = limit
	}

	rows, err := g.table(s).FindMany(ctx, opts)
	if err != nil {
		return nil, err
	}

	records := make([]entity.Record, len(rows))
	for i, row := range rows {
		records[i] = row
	}
	return records, nil
}

func (g group[T]) decode(raw json.RawMessage) (entity.Record, error) {
	var rec T

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return nil, decodeError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after record")
	}

	if err := validate.Struct(rec); err != nil {
		return nil, validationError(err)
	}
	return rec, nil
}

func (g group[T]) apply(ctx context.Context, s *store.Store, rec entity.Record) (applyResult, error) {
	typed, ok := rec.(T)
	if !ok {
		return 0, fmt.Errorf("record is %T, not %T", rec, typed)
	}
	table := g.table(s)

	if g.mode == ModeUpsert {
		return resultApplied, table.Upsert(ctx, typed)
	}

	exists, err := table.Exists(ctx, typed.RecordID())
	if err != nil {
		return 0, err
	}
	if exists {
		return resultExisting, nil
	}
	return resultApplied, table.Create(ctx, typed)
}

func (g group[T]) keyOf(raw json.RawMessage) string {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "(unreadable record)"
	}
	for _, name := range []string{g.keyField, "id"} {
		if v, ok := fields[name]; ok && v != nil {
			if name == "level" {
				return fmt.Sprintf("level %v", v)
			}
			return fmt.Sprint(v)
		}
	}
	return "(no key)"
}

// Registry is the fixed restore order. Organizational groups come first,
// then people and risks, then treatment, then append-only history.
var Registry = []Descriptor{
	group[entity.Department]{name: "departments", mode: ModeUpsert, keyField: "code", table: func(s *store.Store) *store.Table[entity.Department] { return s.Departments }},
	group[entity.Category]{name: "categories", mode: ModeUpsert, keyField: "code", table: func(s *store.Store) *store.Table[entity.Category] { return s.Categories }},
	group[entity.RiskStatus]{name: "riskStatuses", mode: ModeUpsert, keyField: "code", table: func(s *store.Store) *store.Table[entity.RiskStatus] { return s.RiskStatuses }},
	group[entity.RiskSource]{name: "riskSources", mode: ModeUpsert, keyField: "code", table: func(s *store.Store) *store.Table[entity.RiskSource] { return s.RiskSources }},
	group[entity.ImpactCriterion]{name: "impactCriteria", mode: ModeUpsert, keyField: "level", table: func(s *store.Store) *store.Table[entity.ImpactCriterion] { return s.ImpactCriteria }},
	group[entity.LikelihoodCriterion]{name: "likelihoodCriteria", mode: ModeUpsert, keyField: "level", table: func(s *store.Store) *store.Table[entity.LikelihoodCriterion] { return s.LikelihoodCriteria }},

	group[entity.User]{name: "users", mode: ModeUpsert, keyField: "email", table: func(s *store.Store) *store.Table[entity.User] { return s.Users }},
	group[entity.RiskOwner]{name: "riskOwners", mode: ModeUpsert, keyField: "email", table: func(s *store.Store) *store.Table[entity.RiskOwner] { return s.RiskOwners }},
	group[entity.Risk]{name: "risks", mode: ModeUpsert, keyField: "riskNumber", table: func(s *store.Store) *store.Table[entity.Risk] { return s.Risks }},

	group[entity.TreatmentPlan]{name: "treatmentPlans", mode: ModeUpsert, keyField: "title", table: func(s *store.Store) *store.Table[entity.TreatmentPlan] { return s.TreatmentPlans }},
	group[entity.TreatmentTask]{name: "treatmentTasks", mode: ModeUpsert, keyField: "title", table: func(s *store.Store) *store.Table[entity.TreatmentTask] { return s.TreatmentTasks }},
	group[entity.TreatmentStep]{name: "treatmentSteps", mode: ModeUpsert, table: func(s *store.Store) *store.Table[entity.TreatmentStep] { return s.TreatmentSteps }},

	group[entity.TaskUpdate]{name: "taskUpdates", mode: ModeInsertIfAbsent, table: func(s *store.Store) *store.Table[entity.TaskUpdate] { return s.TaskUpdates }},
	group[entity.RiskAssessment]{name: "riskAssessments", mode: ModeInsertIfAbsent, table: func(s *store.Store) *store.Table[entity.RiskAssessment] { return s.RiskAssessments }},
	group[entity.Comment]{name: "comments", mode: ModeInsertIfAbsent, table: func(s *store.Store) *store.Table[entity.Comment] { return s.Comments }},
	group[entity.Discussion]{name: "discussions", mode: ModeInsertIfAbsent, table: func(s *store.Store) *store.Table[entity.Discussion] { return s.Discussions }},
	group[entity.ChangeLog]{name: "changeLogs", mode: ModeInsertIfAbsent, capped: true, table: func(s *store.Store) *store.Table[entity.ChangeLog] { return s.ChangeLogs }},
	group[entity.Notification]{name: "notifications", mode: ModeInsertIfAbsent, capped: true, table: func(s *store.Store) *store.Table[entity.Notification] { return s.Notifications }},
	group[entity.AuditEntry]{name: "auditEntries", mode: ModeInsertIfAbsent, capped: true, table: func(s *store.Store) *store.Table[entity.AuditEntry] { return s.AuditEntries }},
	group[entity.DirectMessage]{name: "directMessages", mode: ModeInsertIfAbsent, capped: true, table: func(s *store.Store) *store.Table[entity.DirectMessage] { return s.DirectMessages }},
}

// Lookup returns the descriptor for a group name
func Lookup(name string) (Descriptor, bool) {
	for _, d := range Registry {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

// GroupNames returns the registry order
func GroupNames() []string {
	names := make([]string, len(Registry))
	for i, d := range Registry {
		names[i] = d.Name()
	}
	return names
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("field %s: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
	}
	// unknown fields surface as `json: unknown field "x"`
	return errors.New(strings.TrimPrefix(err.Error(), "json: "))
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "email":
			msgs = append(msgs, fe.Field()+" must be a valid email")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
