package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/revu/internal/formatter"
	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/shared"
	"github.com/urfave/cli/v3"
)

// now is replaced in tests.
var now = time.Now

// parseDay accepts YYYY-MM-DD or a relative name.
func parseDay(s string) (models.Date, error) {
	today := models.DateOf(now())
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	case "yesterday":
		return today.AddDays(-1), nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return models.Date{}, fmt.Errorf("%w: %q", shared.ErrInvalidDate, s)
	}
	return d, nil
}

// loadDay selects the --date day on the board and fetches it.
func (r *Runner) loadDay(ctx context.Context, cmd *cli.Command) (models.DayView, error) {
	if err := r.requireAuth(); err != nil {
		return models.DayView{}, err
	}
	date, err := parseDay(cmd.String("date"))
	if err != nil {
		return models.DayView{}, err
	}
	view, err := r.board.Load(ctx, date)
	if perr := r.drainProgress(); err == nil {
		err = perr
	}
	return view, err
}

// DayShow prints the completed tasks and due revisions for a date.
func (r *Runner) DayShow(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	view, err := r.loadDay(ctx, cmd)
	if err != nil {
		return err
	}

	out, err := formatter.RenderDay(view, format, r.painter)
	if err != nil {
		return err
	}
	return r.write(cmd, out)
}
