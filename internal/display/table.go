package display

import (
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Alignment of a table column
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

const cellPadding = 1

// Table renders rows as an ASCII grid, truncating cells to fit MaxWidth
type Table struct {
	headers    []string
	rows       [][]string
	alignments map[int]Alignment
	colorize   map[int]func(string) string

	// MaxWidth limits the rendered line length; 0 means unlimited
	MaxWidth int
}

// NewTable creates a table with the given column headers
func NewTable(headers ...string) *Table {
	return &Table{
		headers:    headers,
		alignments: make(map[int]Alignment),
		colorize:   make(map[int]func(string) string),
	}
}

// AddRow appends a row; missing cells render empty
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// SetAlignment aligns column col
func (t *Table) SetAlignment(col int, a Alignment) {
	t.alignments[col] = a
}

// SetColorizer styles cells of column col after padding
func (t *Table) SetColorizer(col int, fn func(string) string) {
	t.colorize[col] = fn
}

// Len returns the number of data rows
func (t *Table) Len() int { return len(t.rows) }

// Render writes the table to w. Headers are styled with header when non-nil.
func (t *Table) Render(w io.Writer, header func(string) string) error {
	widths := t.columnWidths()
	if len(widths) == 0 {
		return nil
	}

	var b strings.Builder
	border := t.border(widths)
	b.WriteString(border)
	b.WriteString(t.row(t.headers, widths, header))
	b.WriteString(border)
	for _, r := range t.rows {
		b.WriteString(t.row(r, widths, nil))
	}
	b.WriteString(border)

	_, err := io.WriteString(w, b.String())
	return err
}

func (t *Table) columnWidths() []int {
	n := len(t.headers)
	for _, r := range t.rows {
		n = max(n, len(r))
	}
	widths := make([]int, n)
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, r := range t.rows {
		for i, cell := range r {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}
	return t.fit(widths)
}

// fit shrinks the widest columns until the table fits MaxWidth
func (t *Table) fit(widths []int) []int {
	if t.MaxWidth <= 0 {
		return widths
	}
	total := func() int {
		sum := len(widths) + 1
		for _, w := range widths {
			sum += w + 2*cellPadding
		}
		return sum
	}
	for total() > t.MaxWidth {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= 4 {
			break
		}
		widths[widest]--
	}
	return widths
}

func (t *Table) border(widths []int) string {
	var b strings.Builder
	b.WriteString("+")
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2*cellPadding))
		b.WriteString("+")
	}
	b.WriteString("\n")
	return b.String()
}

func (t *Table) row(cells []string, widths []int, style func(string) string) string {
	var b strings.Builder
	b.WriteString("|")
	for i, w := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		padded := pad(truncate(cell, w), w, t.alignments[i])
		switch {
		case style != nil:
			padded = style(padded)
		case t.colorize[i] != nil && cell != "":
			padded = t.colorize[i](padded)
		}
		b.WriteString(strings.Repeat(" ", cellPadding))
		b.WriteString(padded)
		b.WriteString(strings.Repeat(" ", cellPadding))
		b.WriteString("|")
	}
	b.WriteString("\n")
	return b.String()
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	if width > 3 {
		return string(runes[:width-3]) + "..."
	}
	return string(runes[:width])
}

func pad(s string, width int, a Alignment) string {
	gap := strings.Repeat(" ", max(0, width-utf8.RuneCountInString(s)))
	if a == AlignRight {
		return gap + s
	}
	return s + gap
}

// TerminalWidth returns the column count of w when it is a terminal, or 0
func TerminalWidth(w io.Writer) int {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
