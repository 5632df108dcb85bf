package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/revu/internal/formatter"
	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/schedule"
	"github.com/desertthunder/revu/internal/services"
	"github.com/desertthunder/revu/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) RevisionDone(ctx context.Context, cmd *cli.Command) error {
	return r.changeStatus(ctx, cmd, models.StatusDone)
}

func (r *Runner) RevisionPending(ctx context.Context, cmd *cli.Command) error {
	return r.changeStatus(ctx, cmd, models.StatusPending)
}

func (r *Runner) RevisionSkip(ctx context.Context, cmd *cli.Command) error {
	return r.changeStatus(ctx, cmd, models.StatusSkipped)
}

func (r *Runner) RevisionPostpone(ctx context.Context, cmd *cli.Command) error {
	return r.changeStatus(ctx, cmd, models.StatusPostponed)
}

// RevisionToggle flips a revision between done and pending.
func (r *Runner) RevisionToggle(ctx context.Context, cmd *cli.Command) error {
	return r.changeStatus(ctx, cmd, "")
}

// changeStatus loads the --date day and applies to; an empty status toggles.
func (r *Runner) changeStatus(ctx context.Context, cmd *cli.Command, to models.RevisionStatus) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: revision id", shared.ErrMissingArgument)
	}
	if _, err := r.loadDay(ctx, cmd); err != nil {
		return err
	}

	if to == "" {
		rev, err := r.board.Revision(id)
		if err != nil {
			return err
		}
		to = schedule.Toggle(rev.Status)
	}

	_, err := r.board.ChangeRevisionStatus(ctx, id, to)
	if perr := r.drainProgress(); err == nil {
		err = perr
	}
	if err != nil {
		return err
	}

	if to != models.StatusPostponed {
		if err := r.writePlain("✓ %s %s\n", r.painter.Status(to), id); err != nil {
			return err
		}
	}
	if view, ok := r.board.View(); ok {
		out, err := formatter.RenderDay(view, formatter.Text, r.painter)
		if err != nil {
			return err
		}
		return r.write(cmd, append([]byte("\n"), out...))
	}
	return nil
}

// RevisionCalendar adds a revision to the linked Google calendar. When the
// server cannot create the event, or with --link, it falls back to a
// pre-filled Google Calendar page.
func (r *Runner) RevisionCalendar(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: revision id", shared.ErrMissingArgument)
	}
	if _, err := r.loadDay(ctx, cmd); err != nil {
		return err
	}
	rev, err := r.board.Revision(id)
	if err != nil {
		return err
	}

	ev := services.RevisionEvent(rev, time.Duration(r.config.Google.EventMinutes)*time.Minute)
	link := services.CalendarURL(ev)

	if !cmd.Bool("link") {
		err := r.google.CreateEvent(ctx, ev)
		if err == nil {
			return r.writePlain("✓ Added \"%s\" to Google Calendar on %s\n", rev.Title, formatter.LongDate(rev.ScheduledDate))
		}
		r.logger.Warn("calendar event not created, using calendar link", "error", err)
	}

	if r.config.Google.OpenBrowser {
		err := shared.OpenBrowser(link)
		if err == nil {
			return r.writePlain("Opened Google Calendar in your browser\n")
		}
		r.logger.Warn("failed to open browser", "error", err)
	}
	return r.writePlain("Add the revision to your calendar:\n%s\n", link)
}
