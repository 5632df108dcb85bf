package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/revu/internal/formatter"
	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/schedule"
	"github.com/desertthunder/revu/internal/shared"
	"github.com/desertthunder/revu/internal/tasks"
	"github.com/urfave/cli/v3"
)

// TaskCreate records a completed task. Without --revision the default
// schedule is used.
func (r *Runner) TaskCreate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}
	day, err := parseDay(cmd.String("date"))
	if err != nil {
		return err
	}
	completed := day
	if cmd.IsSet("completed") {
		if completed, err = parseDay(cmd.String("completed")); err != nil {
			return err
		}
	}

	draft := tasks.NewDraft(completed)
	draft.Title = cmd.String("title")
	if draft.Title == "" {
		if draft.Title, err = r.prompt("Title"); err != nil {
			return err
		}
	}
	draft.Notes = cmd.String("notes")
	if err := applyScheduleFlags(cmd, draft); err != nil {
		return err
	}

	return r.saveDraft(ctx, day, draft)
}

// TaskUpdate edits a saved task. Only the flags given are changed.
func (r *Runner) TaskUpdate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: task id", shared.ErrMissingArgument)
	}
	day, err := parseDay(cmd.String("date"))
	if err != nil {
		return err
	}

	draft, err := r.board.EditDraft(ctx, id)
	if err != nil {
		return err
	}
	if cmd.IsSet("title") {
		draft.Title = cmd.String("title")
	}
	if cmd.IsSet("notes") {
		draft.Notes = cmd.String("notes")
	}
	if cmd.IsSet("completed") {
		if draft.CompletedDate, err = parseDay(cmd.String("completed")); err != nil {
			return err
		}
	}
	if err := applyScheduleFlags(cmd, draft); err != nil {
		return err
	}

	return r.saveDraft(ctx, day, draft)
}

func (r *Runner) saveDraft(ctx context.Context, day models.Date, draft *tasks.Draft) error {
	r.board.Select(day)
	task, err := r.board.SaveDraft(ctx, draft)
	if perr := r.drainProgress(); err == nil {
		err = perr
	}
	if err != nil {
		return err
	}
	if len(task.Revisions) == 0 {
		task.Revisions = make([]models.Revision, len(draft.Revisions))
		for i, d := range draft.Revisions {
			task.Revisions[i] = models.Revision{ScheduledDate: d, Status: models.StatusPending}
		}
	}
	_, err = r.output.Write(formatter.TaskToText(*task, r.painter))
	return err
}

// applyScheduleFlags edits the draft's revisions: --revision replaces the
// list, then --remove and --add are applied in that order.
func applyScheduleFlags(cmd *cli.Command, draft *tasks.Draft) error {
	if cmd.IsSet("revision") {
		dates, err := parseDays(cmd.StringSlice("revision"))
		if err != nil {
			return err
		}
		draft.Revisions = dates
	} else if cmd.IsSet("completed") && draft.TaskID == "" {
		draft.ResetSchedule()
	}

	if pos := cmd.Int("remove"); pos != 0 {
		if err := draft.RemoveRevision(int(pos) - 1); err != nil {
			return err
		}
	}
	for range cmd.Int("add") {
		draft.AddRevision()
	}
	return nil
}

func (r *Runner) TaskShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	task, err := r.tasks.Get(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}
	schedule.SortRevisions(task.Revisions)

	out, err := formatter.RenderTask(*task, format, r.painter)
	if err != nil {
		return err
	}
	return r.write(cmd, out)
}

// TaskSchedule replaces a task's revision dates without touching its other fields.
func (r *Runner) TaskSchedule(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(); err != nil {
		return err
	}
	dates, err := parseDays(cmd.StringSlice("revision"))
	if err != nil {
		return err
	}

	task, err := r.tasks.UpdateSchedule(ctx, cmd.StringArg("id"), dates)
	if err != nil {
		return err
	}
	if err := r.writePlain("✓ Schedule updated\n"); err != nil {
		return err
	}
	_, err = r.output.Write(formatter.ScheduleToText(task.CompletedDate, dates))
	return err
}

// TaskPreview prints the default schedule without contacting the API.
func (r *Runner) TaskPreview(ctx context.Context, cmd *cli.Command) error {
	completed, err := parseDay(cmd.String("date"))
	if err != nil {
		return err
	}
	_, err = r.output.Write(formatter.ScheduleToText(completed, schedule.DefaultSchedule(completed)))
	return err
}

func parseDays(values []string) ([]models.Date, error) {
	dates := make([]models.Date, 0, len(values))
	for _, v := range values {
		d, err := parseDay(v)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}
