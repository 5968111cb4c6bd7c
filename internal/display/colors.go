package display

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Palette colors status words and headers. A disabled palette returns
// text unchanged.
type Palette struct {
	enabled bool
	success *color.Color
	warning *color.Color
	failure *color.Color
	muted   *color.Color
	header  *color.Color
}

// NewPalette enables colors only when requested and w is a color terminal
func NewPalette(w io.Writer, enabled bool) *Palette {
	p := &Palette{
		enabled: enabled && SupportsColor(w),
		success: color.New(color.FgHiGreen),
		warning: color.New(color.FgHiYellow),
		failure: color.New(color.FgHiRed, color.Bold),
		muted:   color.New(color.FgWhite, color.Faint),
		header:  color.New(color.FgHiBlue, color.Bold),
	}
	for _, c := range []*color.Color{p.success, p.warning, p.failure, p.muted, p.header} {
		if p.enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// SupportsColor reports whether w is a terminal that accepts ANSI colors
func SupportsColor(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return termenv.EnvColorProfile() != termenv.Ascii
}

// Enabled reports whether output is colored
func (p *Palette) Enabled() bool { return p.enabled }

func (p *Palette) Success(s string) string { return p.success.Sprint(s) }
func (p *Palette) Warning(s string) string { return p.warning.Sprint(s) }
func (p *Palette) Failure(s string) string { return p.failure.Sprint(s) }
func (p *Palette) Muted(s string) string   { return p.muted.Sprint(s) }
func (p *Palette) Header(s string) string  { return p.header.Sprint(s) }

// Status colors a backup status word
func (p *Palette) Status(status string) string {
	switch status {
	case "completed", "applied", "accepted":
		return p.Success(status)
	case "failed", "rejected":
		return p.Failure(status)
	default:
		return p.Warning(status)
	}
}
