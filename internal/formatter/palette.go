package formatter

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/revu/internal/models"
)

// Painter styles fragments of text output.
type Painter interface {
	Title(string) string
	Status(models.RevisionStatus) string
	Muted(string) string
	Warn(string) string
}

// Palette is a [Painter] built from named [lipgloss.Style] values.
type Palette struct {
	title   lipgloss.Style
	done    lipgloss.Style
	pending lipgloss.Style
	skipped lipgloss.Style
	warn    lipgloss.Style
	muted   lipgloss.Style
}

// DefaultPalette is used by the CLI.
var DefaultPalette = NewPalette("#7D56F4", "#04B575", "#FFA500", "#626262", "#FF0000")

func NewPalette(title, done, pending, muted, warn string) *Palette {
	return &Palette{
		title:   newBold(title),
		done:    newBold(done),
		pending: newStyle(pending),
		skipped: newStyle(muted).Strikethrough(true),
		warn:    newBold(warn),
		muted:   newStyle(muted).Italic(true),
	}
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) Muted(s string) string { return p.muted.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }

func (p *Palette) Status(st models.RevisionStatus) string {
	label := "[" + string(st) + "]"
	switch st {
	case models.StatusDone:
		return p.done.Render(label)
	case models.StatusSkipped, models.StatusPostponed:
		return p.skipped.Render(label)
	default:
		return p.pending.Render(label)
	}
}

// Plain writes text unstyled.
type Plain struct{}

func (Plain) Title(s string) string                  { return s }
func (Plain) Muted(s string) string                  { return s }
func (Plain) Warn(s string) string                   { return s }
func (Plain) Status(st models.RevisionStatus) string { return "[" + string(st) + "]" }

func newStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func newBold(fg string) lipgloss.Style {
	return newStyle(fg).Bold(true)
}
