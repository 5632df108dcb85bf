// Package formatter renders day views, tasks and revision schedules as plain
// text, Markdown or JSON.
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/shared"
)

// Format selects an output encoding.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	JSON     Format = "json"
)

const longDate = "Mon, Jan 2, 2006"

// ParseFormat accepts text, markdown (or md) and json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, s)
}

// LongDate formats d as "Mon, Jan 2, 2006".
func LongDate(d models.Date) string {
	if d.IsZero() {
		return "(no date)"
	}
	return d.Time().Format(longDate)
}

// RenderDay encodes view in format. p styles text output; nil means [Plain].
func RenderDay(view models.DayView, format Format, p Painter) ([]byte, error) {
	switch format {
	case JSON:
		return toJSON(view)
	case Markdown:
		return DayToMarkdown(view), nil
	default:
		return DayToText(view, p), nil
	}
}

// RenderTask encodes task in format.
func RenderTask(task models.Task, format Format, p Painter) ([]byte, error) {
	switch format {
	case JSON:
		return toJSON(task)
	case Markdown:
		return TaskToMarkdown(task), nil
	default:
		return TaskToText(task, p), nil
	}
}

// DayToText lists the completed tasks and the revisions due on view.Date.
func DayToText(view models.DayView, p Painter) []byte {
	if p == nil {
		p = Plain{}
	}
	var buf bytes.Buffer

	fmt.Fprintln(&buf, p.Title(LongDate(view.Date)))
	if view.Stale {
		fmt.Fprintln(&buf, p.Warn("Offline: showing a saved copy"))
	}

	fmt.Fprintf(&buf, "\nCompleted (%d)\n", len(view.CompletedTasks))
	if len(view.CompletedTasks) == 0 {
		fmt.Fprintln(&buf, p.Muted("  No tasks completed on this day"))
	}
	for _, t := range view.CompletedTasks {
		fmt.Fprintf(&buf, "  %s %s\n", t.Title, p.Muted("("+t.ID+")"))
	}

	fmt.Fprintf(&buf, "\nRevisions due (%d)\n", len(view.RevisionsDue))
	if len(view.RevisionsDue) == 0 {
		fmt.Fprintln(&buf, p.Muted("  Nothing to revise"))
	}
	for _, r := range view.RevisionsDue {
		fmt.Fprintf(&buf, "  %s %s %s\n", p.Status(r.Status), r.Title, p.Muted("("+r.ID+")"))
	}
	return buf.Bytes()
}

// DayToMarkdown renders view as a Markdown checklist.
func DayToMarkdown(view models.DayView) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", LongDate(view.Date))
	if view.Stale {
		buf.WriteString("> Offline: showing a saved copy\n\n")
	}

	buf.WriteString("## Completed\n\n")
	for _, t := range view.CompletedTasks {
		fmt.Fprintf(&buf, "- %s\n", t.Title)
	}
	if len(view.CompletedTasks) == 0 {
		buf.WriteString("_None_\n")
	}

	buf.WriteString("\n## Revisions\n\n")
	for _, r := range view.RevisionsDue {
		mark := " "
		if r.Status == models.StatusDone {
			mark = "x"
		}
		fmt.Fprintf(&buf, "- [%s] %s", mark, r.Title)
		if r.Status != models.StatusDone && r.Status != models.StatusPending {
			fmt.Fprintf(&buf, " (%s)", r.Status)
		}
		buf.WriteString("\n")
	}
	if len(view.RevisionsDue) == 0 {
		buf.WriteString("_None_\n")
	}
	return buf.Bytes()
}

// TaskToText shows a task with its revision schedule.
func TaskToText(task models.Task, p Painter) []byte {
	if p == nil {
		p = Plain{}
	}
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s %s\n", p.Title(task.Title), p.Muted("("+task.ID+")"))
	fmt.Fprintf(&buf, "Completed: %s\n", LongDate(task.CompletedDate))
	if task.Notes != "" {
		fmt.Fprintf(&buf, "Notes: %s\n", task.Notes)
	}

	fmt.Fprintf(&buf, "Revisions: %d\n", len(task.Revisions))
	for i, r := range task.Revisions {
		fmt.Fprintf(&buf, "  %d. %s %s\n", i+1, LongDate(r.ScheduledDate), p.Status(r.Status))
	}
	return buf.Bytes()
}

func TaskToMarkdown(task models.Task) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", task.Title)
	fmt.Fprintf(&buf, "**Completed**: %s\n\n", LongDate(task.CompletedDate))
	if task.Notes != "" {
		fmt.Fprintf(&buf, "**Notes**: %s\n\n", task.Notes)
	}

	buf.WriteString("## Revisions\n\n")
	for i, r := range task.Revisions {
		fmt.Fprintf(&buf, "%d. %s (%s)\n", i+1, LongDate(r.ScheduledDate), r.Status)
	}
	return buf.Bytes()
}

// ScheduleToText numbers a draft's revision dates with their offset from
// the completed date.
func ScheduleToText(completed models.Date, revisions []models.Date) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Completed: %s\n", LongDate(completed))
	if len(revisions) == 0 {
		buf.WriteString("No revisions scheduled\n")
		return buf.Bytes()
	}
	for i, d := range revisions {
		days := int(d.Time().Sub(completed.Time()).Hours() / 24)
		fmt.Fprintf(&buf, "  %d. %s (+%dd)\n", i+1, LongDate(d), days)
	}
	return buf.Bytes()
}

// WriteFile renders data to path, or to stdout when path is empty or "-".
func WriteFile(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func toJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}
