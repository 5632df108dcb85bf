package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/shared"
)

// CalendarClient reads the server's per-day aggregation.
type CalendarClient struct {
	api *APIService
}

func NewCalendarClient(api *APIService) *CalendarClient {
	return &CalendarClient{api: api}
}

// Day returns the tasks completed on date and the revisions due on it.
func (c *CalendarClient) Day(ctx context.Context, date models.Date) (*models.DayView, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: calendar date is empty", shared.ErrInvalidDate)
	}

	resp, err := c.api.Send(ctx, http.MethodGet, "/calendar", nil, WithQuery("date", date.String()))
	if err != nil {
		return nil, err
	}

	var view models.DayView
	if err := resp.Decode(&view); err != nil {
		return nil, err
	}
	view.Date = date
	return &view, nil
}
