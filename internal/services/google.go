package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/revu/internal/models"
)

const (
	calendarTemplateURL  = "https://calendar.google.com/calendar/render"
	googleTimeLayout     = "20060102T150405Z"
	DefaultEventDuration = time.Hour
)

// EventTime is a Google Calendar start or end.
type EventTime struct {
	DateTime time.Time `json:"dateTime"`
}

// Event is a calendar reminder for a revision.
type Event struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
}

// RevisionEvent builds the reminder for rev, starting at its scheduled date.
func RevisionEvent(rev models.Revision, duration time.Duration) Event {
	if duration <= 0 {
		duration = DefaultEventDuration
	}

	desc := "Revision of task: " + rev.Title
	if rev.Notes != "" {
		desc += "\n\nNotes: " + rev.Notes
	}
	desc += "\n\nThis is a spaced repetition reminder to help strengthen your memory of this topic."

	start := rev.ScheduledDate.Time().UTC()
	return Event{
		Summary:     "Revision: " + rev.Title,
		Description: desc,
		Start:       EventTime{DateTime: start},
		End:         EventTime{DateTime: start.Add(duration)},
	}
}

// CalendarURL is a prefilled Google Calendar template link for ev, used when
// the server cannot create the event itself.
func CalendarURL(ev Event) string {
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", ev.Summary)
	q.Set("dates", ev.Start.DateTime.UTC().Format(googleTimeLayout)+"/"+ev.End.DateTime.UTC().Format(googleTimeLayout))
	q.Set("details", ev.Description)
	q.Set("sf", "true")
	q.Set("output", "xml")
	return calendarTemplateURL + "?" + q.Encode()
}

// GoogleClient calls the server's Google Calendar integration.
type GoogleClient struct {
	api *APIService
}

func NewGoogleClient(api *APIService) *GoogleClient {
	return &GoogleClient{api: api}
}

// CreateEvent asks the server to add ev to the linked Google calendar.
func (c *GoogleClient) CreateEvent(ctx context.Context, ev Event) error {
	if _, err := c.api.Send(ctx, http.MethodPost, "/google/create-event", ev); err != nil {
		return fmt.Errorf("create calendar event: %w", err)
	}
	return nil
}

// OAuthStartURL is where a browser starts linking a Google account.
func (c *GoogleClient) OAuthStartURL() string {
	return c.api.BaseURL() + "/google/oauth-start"
}
