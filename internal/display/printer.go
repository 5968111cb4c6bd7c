// Package display renders backup records, restore outcomes and retention
// results for the command line as a table, JSON or YAML.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"risk-register-backup/internal/backup"
	"risk-register-backup/internal/snapshot"

	"gopkg.in/yaml.v3"
)

// Format selects the output encoding
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts table, json and yaml; empty means table
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return Format(value), nil
	default:
		return "", fmt.Errorf("unsupported output format %q (expected table, json or yaml)", value)
	}
}

// Printer writes command results in one Format
type Printer struct {
	w       io.Writer
	format  Format
	palette *Palette
	width   int
}

// NewPrinter creates a printer. Colors apply to table output on terminals only.
func NewPrinter(w io.Writer, format Format, colorEnabled bool) *Printer {
	return &Printer{
		w:       w,
		format:  format,
		palette: NewPalette(w, colorEnabled && format == FormatTable),
		width:   TerminalWidth(w),
	}
}

// Format returns the printer's output format
func (p *Printer) Format() Format { return p.format }

// Records prints backup records newest first, as given
func (p *Printer) Records(records []backup.BackupRecord) error {
	if p.format != FormatTable {
		if records == nil {
			records = []backup.BackupRecord{}
		}
		return p.encode(records)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(p.w, p.palette.Muted("No backups recorded."))
		return err
	}

	t := p.newTable("ID", "KIND", "STATUS", "SIZE", "RECORDS", "CREATED", "CREATED BY", "ERROR")
	t.SetAlignment(3, AlignRight)
	t.SetAlignment(4, AlignRight)
	t.SetColorizer(2, p.palette.Status)
	for _, r := range records {
		createdBy := "-"
		if r.CreatedByUserID != nil {
			createdBy = *r.CreatedByUserID
		}
		errMsg := ""
		if r.ErrorMessage != nil {
			errMsg = *r.ErrorMessage
		}
		t.AddRow(
			r.ID,
			string(r.Kind),
			string(r.Status),
			HumanBytes(r.FileSizeBytes),
			strconv.Itoa(r.TotalRecords()),
			r.CreatedAt.UTC().Format(time.RFC3339),
			createdBy,
			errMsg,
		)
	}
	return t.Render(p.w, p.palette.Header)
}

// Artifact summarizes a completed export written to path
func (p *Printer) Artifact(a *backup.Artifact, path string) error {
	if p.format != FormatTable {
		return p.encode(struct {
			Path   string               `json:"path" yaml:"path"`
			Record *backup.BackupRecord `json:"record" yaml:"record"`
		}{path, a.Record})
	}

	if _, err := fmt.Fprintf(p.w, "%s %s (%s, %s)\n",
		p.palette.Success("Backup written to"), path, HumanBytes(a.Record.FileSizeBytes), a.Record.ID); err != nil {
		return err
	}
	return p.countsTable("RECORDS", a.Record.StatsSnapshot, nil)
}

// Outcome prints a restore or check outcome
func (p *Printer) Outcome(o *snapshot.RestoreOutcome, dryRun bool) error {
	if p.format != FormatTable {
		return p.encode(o)
	}

	if !o.Accepted {
		_, err := fmt.Fprintf(p.w, "%s %s\n", p.palette.Failure("Restore rejected:"), o.Reason)
		return err
	}

	verb := "Restore applied"
	if dryRun {
		verb = "Check passed"
	}
	if _, err := fmt.Fprintf(p.w, "%s %d records with %d errors\n", p.palette.Success(verb+":"), o.Applied(), len(o.Errors)); err != nil {
		return err
	}
	if err := p.countsTable("APPLIED", o.Counts, o.Existing); err != nil {
		return err
	}
	if len(o.Skipped) > 0 {
		if _, err := fmt.Fprintf(p.w, "%s %v\n", p.palette.Warning("Skipped unknown groups:"), o.Skipped); err != nil {
			return err
		}
	}
	for _, e := range o.Errors {
		if _, err := fmt.Fprintf(p.w, "  %s %s\n", p.palette.Failure("x"), e); err != nil {
			return err
		}
	}
	return nil
}

// Retention prints the result of a prune pass
func (p *Printer) Retention(r *backup.RetentionResult) error {
	if p.format != FormatTable {
		return p.encode(r)
	}

	action := "Deleted"
	if r.DryRun {
		action = "Would delete"
	}
	if _, err := fmt.Fprintf(p.w, "%s %d of %d completed backups, keeping %d\n",
		p.palette.Header(action), r.BackupsDeleted, r.TotalBackupsProcessed, r.BackupsKept); err != nil {
		return err
	}
	if len(r.DeletedBackups) > 0 {
		if err := p.Records(r.DeletedBackups); err != nil {
			return err
		}
	}
	for _, e := range r.Errors {
		if _, err := fmt.Fprintf(p.w, "  %s %s\n", p.palette.Warning("!"), e); err != nil {
			return err
		}
	}
	return nil
}

// Value encodes any value in the printer's format; table falls back to YAML
func (p *Printer) Value(v any) error {
	if p.format == FormatJSON {
		return p.encode(v)
	}
	return yaml.NewEncoder(p.w).Encode(v)
}

// countsTable lists per-group counts in restore order, then any other groups
func (p *Printer) countsTable(label string, counts, existing map[string]int) error {
	if len(counts) == 0 && len(existing) == 0 {
		return nil
	}

	headers := []string{"GROUP", label}
	if existing != nil {
		headers = append(headers, "EXISTING")
	}
	t := p.newTable(headers...)
	t.SetAlignment(1, AlignRight)
	t.SetAlignment(2, AlignRight)

	for _, name := range orderedGroups(counts, existing) {
		row := []string{name, strconv.Itoa(counts[name])}
		if existing != nil {
			row = append(row, strconv.Itoa(existing[name]))
		}
		t.AddRow(row...)
	}
	return t.Render(p.w, p.palette.Header)
}

func orderedGroups(maps ...map[string]int) []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range snapshot.GroupNames() {
		for _, m := range maps {
			if _, ok := m[name]; ok && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	var rest []string
	for _, m := range maps {
		for name := range m {
			if !seen[name] {
				seen[name] = true
				rest = append(rest, name)
			}
		}
	}
	slices.Sort(rest)
	return append(names, rest...)
}

func (p *Printer) newTable(headers ...string) *Table {
	t := NewTable(headers...)
	t.MaxWidth = p.width
	return t
}

func (p *Printer) encode(v any) error {
	switch p.format {
	case FormatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	}
}

// HumanBytes formats a byte count with a binary unit
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
