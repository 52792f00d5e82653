package output

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/torosent/cacheprobe/internal/metrics"
)

// Palette colours probe status lines and report headings.
type Palette struct {
	Exact    *color.Color
	Semantic *color.Color
	Miss     *color.Color
	Error    *color.Color
	Warn     *color.Color
	Heading  *color.Color
}

// NewPalette returns the default palette, with every colour disabled when
// noColor is set.
func NewPalette(noColor bool) *Palette {
	p := &Palette{
		Exact:    color.New(color.FgGreen, color.Bold),
		Semantic: color.New(color.FgCyan),
		Miss:     color.New(color.FgYellow),
		Error:    color.New(color.FgRed, color.Bold),
		Warn:     color.New(color.FgYellow, color.Bold),
		Heading:  color.New(color.FgMagenta, color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.Exact, p.Semantic, p.Miss, p.Error, p.Warn, p.Heading} {
			c.DisableColor()
		}
	}
	return p
}

// Tier returns the colour for a cache tier.
func (p *Palette) Tier(t metrics.Tier) *color.Color {
	switch t {
	case metrics.TierExact:
		return p.Exact
	case metrics.TierSemantic:
		return p.Semantic
	case metrics.TierError:
		return p.Error
	default:
		return p.Miss
	}
}

// Status renders a probe outcome: tier, latency and tokens, or the error.
func (p *Palette) Status(rec metrics.Record) string {
	tier := p.Tier(rec.Tier).Sprintf("%-15s", rec.Tier)
	if rec.Tier == metrics.TierError {
		return fmt.Sprintf("%s %s", tier, rec.Error)
	}
	return fmt.Sprintf("%s (%6.1fms, %d tokens)", tier, rec.LatencyMs, rec.Tokens)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// UseColor decides whether output written to f should be coloured.
func UseColor(f *os.File, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return IsTerminal(f)
}
