package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDate(t *testing.T) {
	t.Run("ParseDate Accepts Both Layouts", func(t *testing.T) {
		tc := []struct {
			in   string
			want string
		}{
			{"2025-06-01", "2025-06-01"},
			{"2025-06-05T00:00:00.000Z", "2025-06-05"},
			{"2025-12-31T23:30:00+02:00", "2025-12-31"},
		}
		for _, tt := range tc {
			d, err := ParseDate(tt.in)
			if err != nil {
				t.Fatalf("ParseDate(%q) error: %v", tt.in, err)
			}
			if d.String() != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.in, d, tt.want)
			}
		}
	})

	t.Run("ParseDate Rejects Garbage", func(t *testing.T) {
		if _, err := ParseDate("06/01/2025"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("AddDays Crosses Month And Year", func(t *testing.T) {
		if got := MustParseDate("2025-06-28").AddDays(7).String(); got != "2025-07-05" {
			t.Errorf("got %s", got)
		}
		if got := MustParseDate("2025-12-30").AddDays(3).String(); got != "2026-01-02" {
			t.Errorf("got %s", got)
		}
		if got := MustParseDate("2025-03-01").AddDays(-1).String(); got != "2025-02-28" {
			t.Errorf("got %s", got)
		}
	})

	t.Run("DateOf Keeps Local Calendar Day", func(t *testing.T) {
		loc := time.FixedZone("UTC+9", 9*3600)
		at := time.Date(2025, 6, 1, 2, 0, 0, 0, loc)
		if got := DateOf(at).String(); got != "2025-06-01" {
			t.Errorf("got %s", got)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		var r Revision
		payload := `{"id":"r1","taskId":"t1","title":"Graphs","scheduledDate":"2025-06-04T00:00:00.000Z","status":"pending"}`
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if r.ScheduledDate.String() != "2025-06-04" {
			t.Errorf("scheduled date = %s", r.ScheduledDate)
		}

		out, err := json.Marshal(struct {
			A Date `json:"a"`
			B Date `json:"b"`
		}{A: MustParseDate("2025-06-04")})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(out) != `{"a":"2025-06-04","b":null}` {
			t.Errorf("marshal = %s", out)
		}

		var d Date
		if err := json.Unmarshal([]byte(`""`), &d); err != nil || !d.IsZero() {
			t.Errorf("empty string should decode to zero date, got %v %v", d, err)
		}
	})
}

func TestRevisionStatus(t *testing.T) {
	for _, s := range []string{"pending", "done", "skipped", "postponed"} {
		if _, err := ParseRevisionStatus(s); err != nil {
			t.Errorf("ParseRevisionStatus(%q) error: %v", s, err)
		}
	}
	if _, err := ParseRevisionStatus("archived"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestDayView(t *testing.T) {
	view := DayView{
		Date:         MustParseDate("2025-06-04"),
		RevisionsDue: []Revision{{ID: "a"}, {ID: "b"}},
	}

	if idx := view.Revision("b"); idx != 1 {
		t.Errorf("Revision(b) = %d", idx)
	}
	if idx := view.Revision("z"); idx != -1 {
		t.Errorf("Revision(z) = %d", idx)
	}

	clone := view.Clone()
	clone.RevisionsDue[0].Status = StatusDone
	if view.RevisionsDue[0].Status == StatusDone {
		t.Error("clone should not share the revisions slice")
	}
}
