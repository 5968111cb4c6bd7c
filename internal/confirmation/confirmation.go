// Package confirmation asks the operator to approve a restore before any
// record is written to the target store.
package confirmation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"risk-register-backup/internal/display"
	"risk-register-backup/internal/snapshot"
)

// ErrCancelled is returned when the prompt is interrupted
var ErrCancelled = errors.New("restore cancelled")

// Prompter reads y/N/d answers from an interactive terminal
type Prompter struct {
	reader  *bufio.Reader
	out     io.Writer
	palette *display.Palette
}

// NewPrompter creates a prompter reading answers from in and writing prompts to out
func NewPrompter(in io.Reader, out io.Writer, palette *display.Palette) *Prompter {
	if palette == nil {
		palette = display.NewPalette(out, false)
	}
	return &Prompter{
		reader:  bufio.NewReader(in),
		out:     out,
		palette: palette,
	}
}

// ConfirmRestore summarises what a checked document holds and waits for the
// operator. An empty answer declines. "d" prints the per-group breakdown and
// asks again.
func (p *Prompter) ConfirmRestore(ctx context.Context, target string, preview *snapshot.RestoreOutcome, autoApprove bool) (bool, error) {
	p.DisplaySummary(target, preview)

	if autoApprove {
		fmt.Fprintln(p.out, p.palette.Success("Auto-approving restore"))
		return true, nil
	}

	for {
		input, err := p.prompt(ctx)
		if err != nil {
			return false, err
		}

		switch strings.ToLower(input) {
		case "y", "yes":
			return true, nil
		case "n", "no", "":
			fmt.Fprintln(p.out, p.palette.Muted("Restore cancelled"))
			return false, nil
		case "d", "details":
			if err := p.displayDetails(preview); err != nil {
				return false, err
			}
		default:
			fmt.Fprintf(p.out, "Invalid input %q. Please enter 'y' for yes, 'n' for no, or 'd' for details.\n", input)
		}
	}
}

// DisplaySummary prints the totals of a checked document
func (p *Prompter) DisplaySummary(target string, preview *snapshot.RestoreOutcome) {
	groups := 0
	for _, n := range preview.Counts {
		if n > 0 {
			groups++
		}
	}

	fmt.Fprintln(p.out, p.palette.Header("Restore summary"))
	fmt.Fprintln(p.out, strings.Repeat("-", 30))
	fmt.Fprintf(p.out, "Target store: %s\n", target)
	fmt.Fprintf(p.out, "Records in document: %d across %d groups\n", preview.Applied(), groups)
	if len(preview.Errors) > 0 {
		fmt.Fprintf(p.out, "%s %d\n", p.palette.Failure("Records that cannot be decoded:"), len(preview.Errors))
	}
	if len(preview.Skipped) > 0 {
		fmt.Fprintf(p.out, "%s %s\n", p.palette.Warning("Unknown groups ignored:"), strings.Join(preview.Skipped, ", "))
	}
	fmt.Fprintln(p.out, p.palette.Warning("Existing records with the same id will be overwritten."))
	fmt.Fprintln(p.out)
}

func (p *Prompter) displayDetails(preview *snapshot.RestoreOutcome) error {
	table := display.NewTable("GROUP", "RECORDS")
	table.SetAlignment(1, display.AlignRight)
	for _, group := range snapshot.GroupNames() {
		if n, ok := preview.Counts[group]; ok {
			table.AddRow(group, strconv.Itoa(n))
		}
	}
	fmt.Fprintln(p.out)
	return table.Render(p.out, p.palette.Header)
}

// prompt reads one trimmed line, returning ErrCancelled when ctx ends first
func (p *Prompter) prompt(ctx context.Context) (string, error) {
	fmt.Fprint(p.out, p.palette.Header("Apply this backup? [y/N/d]: "))

	type answer struct {
		line string
		err  error
	}
	answers := make(chan answer, 1)
	go func() {
		line, err := p.reader.ReadString('\n')
		answers <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, p.palette.Warning("Operation cancelled by user"))
		return "", ErrCancelled
	case a := <-answers:
		// EOF without a newline still carries the last answer; a bare EOF declines
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return "", fmt.Errorf("failed to read input: %w", a.err)
		}
		return strings.TrimSpace(a.line), nil
	}
}
