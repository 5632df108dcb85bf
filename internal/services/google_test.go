package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/shared"
	tu "github.com/desertthunder/revu/internal/testing"
)

func TestRevisionEvent(t *testing.T) {
	rev := models.Revision{ID: "r1", Title: "Graphs", Notes: "BFS vs DFS", ScheduledDate: models.MustParseDate("2025-06-04")}

	t.Run("Defaults To One Hour", func(t *testing.T) {
		ev := RevisionEvent(rev, 0)
		if ev.Summary != "Revision: Graphs" {
			t.Errorf("unexpected summary %q", ev.Summary)
		}
		if !strings.Contains(ev.Description, "Notes: BFS vs DFS") {
			t.Errorf("expected notes in description, got %q", ev.Description)
		}
		if got := ev.End.DateTime.Sub(ev.Start.DateTime); got != time.Hour {
			t.Errorf("expected one hour, got %v", got)
		}
	})

	t.Run("Calendar URL", func(t *testing.T) {
		raw := CalendarURL(RevisionEvent(rev, 30*time.Minute))
		u, err := url.Parse(raw)
		if err != nil {
			t.Fatalf("invalid url: %v", err)
		}
		if u.Host != "calendar.google.com" {
			t.Errorf("unexpected host %s", u.Host)
		}
		q := u.Query()
		if q.Get("action") != "TEMPLATE" {
			t.Errorf("expected TEMPLATE action, got %q", q.Get("action"))
		}
		if q.Get("dates") != "20250604T000000Z/20250604T003000Z" {
			t.Errorf("unexpected dates %q", q.Get("dates"))
		}
		if q.Get("text") != "Revision: Graphs" {
			t.Errorf("unexpected text %q", q.Get("text"))
		}
	})
}

func TestGoogleClient(t *testing.T) {
	f := tu.NewFakeAPI(t)
	var got Event
	f.Handle("POST /google/create-event", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		tu.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	api, jar := newTestAPI(t, f)
	seedSession(t, f, api, jar)

	c := NewGoogleClient(api)
	ev := RevisionEvent(models.Revision{Title: "Graphs", ScheduledDate: models.MustParseDate("2025-06-04")}, 0)

	t.Run("CreateEvent", func(t *testing.T) {
		if err := c.CreateEvent(context.Background(), ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Summary != ev.Summary || !got.Start.DateTime.Equal(ev.Start.DateTime) {
			t.Errorf("server received %+v", got)
		}
	})

	t.Run("CreateEvent Not Linked", func(t *testing.T) {
		f.Handle("POST /google/create-event", func(w http.ResponseWriter, r *http.Request) {
			tu.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "Google account not linked"})
		})
		err := c.CreateEvent(context.Background(), ev)
		if err == nil || !strings.Contains(err.Error(), "not linked") {
			t.Errorf("expected not linked error, got %v", err)
		}
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("OAuthStartURL", func(t *testing.T) {
		if got := c.OAuthStartURL(); got != f.URL()+"/google/oauth-start" {
			t.Errorf("unexpected url %s", got)
		}
	})
}
