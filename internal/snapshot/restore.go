package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"risk-register-backup/internal/logging"
	"risk-register-backup/internal/store"
)

// DefaultRecordTimeout bounds each record's store calls
const DefaultRecordTimeout = 10 * time.Second

// Record results reported to a RecordObserver
const (
	ResultApplied  = "applied"
	ResultExisting = "existing"
	ResultFailed   = "failed"
)

// RecordObserver is told the result of every record apply
type RecordObserver func(group, result string)

// RestoreConfig holds the guard and apply settings
type RestoreConfig struct {
	OriginTag        string
	AcceptedVersions []string
	RecordTimeout    time.Duration
}

// DefaultRestoreConfig accepts only documents written by this format version
func DefaultRestoreConfig() RestoreConfig {
	return RestoreConfig{
		OriginTag:        OriginTag,
		AcceptedVersions: []string{FormatVersion},
		RecordTimeout:    DefaultRecordTimeout,
	}
}

// Restorer validates documents and applies them to a store
type Restorer struct {
	store    *store.Store
	config   RestoreConfig
	logger   *logging.Logger
	observer RecordObserver
}

// NewRestorer creates a restorer. Zero config fields take their defaults.
func NewRestorer(s *store.Store, config RestoreConfig, logger *logging.Logger) *Restorer {
	defaults := DefaultRestoreConfig()
	if config.OriginTag == "" {
		config.OriginTag = defaults.OriginTag
	}
	if len(config.AcceptedVersions) == 0 {
		config.AcceptedVersions = defaults.AcceptedVersions
	}
	if config.RecordTimeout <= 0 {
		config.RecordTimeout = defaults.RecordTimeout
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Restorer{store: s, config: config, logger: logger}
}

// SetObserver registers a per-record callback
func (r *Restorer) SetObserver(observer RecordObserver) {
	r.observer = observer
}

// Restore guards and applies raw. A rejected document leaves the store untouched.
func (r *Restorer) Restore(ctx context.Context, raw []byte) *RestoreOutcome {
	start := time.Now()

	doc, err := r.Parse(raw)
	if err != nil {
		outcome := rejected(err)
		r.logger.WithField("reason", err.Reason).Debug("Snapshot failed guard checks")
		r.logger.LogRestoreOutcome(false, nil, nil, time.Since(start))
		return outcome
	}

	outcome := r.Apply(ctx, doc)
	r.logger.LogRestoreOutcome(true, outcome.Counts, outcome.Errors, time.Since(start))
	return outcome
}

type envelope struct {
	FormatVersion    *string         `json:"formatVersion"`
	CreatedAt        json.RawMessage `json:"createdAt"`
	SystemIdentifier *string         `json:"systemIdentifier"`
	EntityGroups     json.RawMessage `json:"entityGroups"`
	Stats            map[string]int  `json:"stats"`
}

// Parse runs the guard phase: shape first, then origin, then version.
func (r *Restorer) Parse(raw []byte) (*Document, *GuardError) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &GuardError{Reason: "document is not a JSON object"}
	}

	if env.FormatVersion == nil || strings.TrimSpace(*env.FormatVersion) == "" {
		return nil, &GuardError{Reason: "formatVersion is missing"}
	}
	if len(env.EntityGroups) == 0 || bytes.Equal(bytes.TrimSpace(env.EntityGroups), []byte("null")) {
		return nil, &GuardError{Reason: "entityGroups is missing"}
	}

	var groups EntityGroups
	if err := json.Unmarshal(env.EntityGroups, &groups); err != nil {
		return nil, &GuardError{Reason: err.Error()}
	}

	if env.SystemIdentifier == nil || !strings.Contains(*env.SystemIdentifier, r.config.OriginTag) {
		return nil, &GuardError{Reason: fmt.Sprintf("systemIdentifier does not identify a %s snapshot", r.config.OriginTag)}
	}
	if !slices.Contains(r.config.AcceptedVersions, *env.FormatVersion) {
		return nil, &GuardError{Reason: fmt.Sprintf("formatVersion %q is not supported (accepted: %s)",
			*env.FormatVersion, strings.Join(r.config.AcceptedVersions, ", "))}
	}

	doc := &Document{
		FormatVersion:    *env.FormatVersion,
		SystemIdentifier: *env.SystemIdentifier,
		EntityGroups:     groups,
		Stats:            env.Stats,
	}
	if len(env.CreatedAt) > 0 {
		// informational only; an odd timestamp does not reject the document
		if err := json.Unmarshal(env.CreatedAt, &doc.CreatedAt); err != nil {
			r.logger.WithFields(map[string]interface{}{
				"created_at": string(env.CreatedAt),
				"error":      err.Error(),
			}).Debug("Ignoring unparseable snapshot createdAt")
		}
	}
	return doc, nil
}

// Apply writes every known group in registry order, one record at a time.
// It is not cancelled by ctx: once started it runs through every group.
func (r *Restorer) Apply(ctx context.Context, doc *Document) *RestoreOutcome {
	outcome := newOutcome()
	outcome.Accepted = true
	base := context.WithoutCancel(ctx)

	for _, name := range doc.EntityGroups.Names() {
		if _, known := Lookup(name); !known {
			outcome.Skipped = append(outcome.Skipped, name)
		}
	}

	for _, desc := range Registry {
		group, ok := doc.EntityGroups.Get(desc.Name())
		if !ok {
			continue
		}
		outcome.Counts[desc.Name()] = 0

		for _, raw := range group.Records {
			result, recErr := r.applyRecord(base, desc, raw)
			switch {
			case recErr != nil:
				outcome.fail(recErr)
				r.observe(desc.Name(), ResultFailed)
			case result == resultExisting:
				outcome.Existing[desc.Name()]++
				r.observe(desc.Name(), ResultExisting)
			default:
				outcome.Counts[desc.Name()]++
				r.observe(desc.Name(), ResultApplied)
			}
		}

		r.logger.WithFields(map[string]interface{}{
			"group":    desc.Name(),
			"mode":     string(desc.Mode()),
			"records":  len(group.Records),
			"applied":  outcome.Counts[desc.Name()],
			"existing": outcome.Existing[desc.Name()],
		}).Debug("Applied entity group")
	}

	return outcome
}

func (r *Restorer) applyRecord(ctx context.Context, desc Descriptor, raw json.RawMessage) (result applyResult, recErr *RecordError) {
	key := desc.keyOf(raw)
	defer func() {
		if p := recover(); p != nil {
			recErr = &RecordError{Group: desc.Name(), Key: key, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	rec, err := desc.decode(raw)
	if err != nil {
		return 0, &RecordError{Group: desc.Name(), Key: key, Err: err}
	}
	key = rec.NaturalKey()

	recordCtx, cancel := context.WithTimeout(ctx, r.config.RecordTimeout)
	defer cancel()

	result, err = desc.apply(recordCtx, r.store, rec)
	if err != nil {
		return 0, &RecordError{Group: desc.Name(), Key: key, Err: err}
	}
	return result, nil
}

func (r *Restorer) observe(group, result string) {
	if r.observer != nil {
		r.observer(group, result)
	}
}

// Check guards raw and decodes every record without writing anything.
// Counts hold the records that would be attempted.
func (r *Restorer) Check(raw []byte) *RestoreOutcome {
	doc, guardErr := r.Parse(raw)
	if guardErr != nil {
		return rejected(guardErr)
	}

	outcome := newOutcome()
	outcome.Accepted = true
	for _, name := range doc.EntityGroups.Names() {
		if _, known := Lookup(name); !known {
			outcome.Skipped = append(outcome.Skipped, name)
		}
	}

	for _, desc := range Registry {
		group, ok := doc.EntityGroups.Get(desc.Name())
		if !ok {
			continue
		}
		outcome.Counts[desc.Name()] = 0
		for _, raw := range group.Records {
			if _, err := desc.decode(raw); err != nil {
				outcome.fail(&RecordError{Group: desc.Name(), Key: desc.keyOf(raw), Err: err})
				continue
			}
			outcome.Counts[desc.Name()]++
		}
	}
	return outcome
}
