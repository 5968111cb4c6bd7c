package snapshot

import (
	"fmt"
	"sort"

	apperrors "risk-register-backup/internal/errors"
)

// GuardError rejects a whole document before any record is touched
type GuardError struct {
	Reason string
}

func (e *GuardError) Error() string {
	return "snapshot rejected: " + e.Reason
}

// RecordError is the failure of one record during apply
type RecordError struct {
	Group string
	Key   string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Group, e.Key, apperrors.Describe(e.Err))
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// RestoreOutcome is the result of one restore invocation. Success mirrors
// the guard decision: per-record failures never clear it.
type RestoreOutcome struct {
	Accepted bool           `json:"success" yaml:"success"`
	Reason   string         `json:"reason,omitempty" yaml:"reason,omitempty"`
	Counts   map[string]int `json:"counts" yaml:"counts"`
	Existing map[string]int `json:"existing,omitempty" yaml:"existing,omitempty"`
	Errors   []string       `json:"errors" yaml:"errors"`
	Skipped  []string       `json:"skipped,omitempty" yaml:"skipped,omitempty"`

	failures []*RecordError
}

func newOutcome() *RestoreOutcome {
	return &RestoreOutcome{
		Counts:   map[string]int{},
		Existing: map[string]int{},
		Errors:   []string{},
	}
}

func rejected(err *GuardError) *RestoreOutcome {
	return Rejected(err.Reason)
}

// Rejected builds the outcome of a document refused before apply
func Rejected(reason string) *RestoreOutcome {
	outcome := newOutcome()
	outcome.Reason = reason
	return outcome
}

func (o *RestoreOutcome) fail(err *RecordError) {
	o.failures = append(o.failures, err)
	o.Errors = append(o.Errors, err.Error())
}

// Failures returns the typed record errors in the order they occurred
func (o *RestoreOutcome) Failures() []*RecordError {
	return o.failures
}

// Applied returns the total number of records written
func (o *RestoreOutcome) Applied() int {
	total := 0
	for _, n := range o.Counts {
		total += n
	}
	return total
}

// Groups returns the counted group names sorted alphabetically
func (o *RestoreOutcome) Groups() []string {
	names := make([]string, 0, len(o.Counts))
	for name := range o.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
