package schedule

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/shared"
)

func dates(ss ...string) []models.Date {
	out := make([]models.Date, len(ss))
	for i, s := range ss {
		out[i] = models.MustParseDate(s)
	}
	return out
}

func TestDefaultSchedule(t *testing.T) {
	t.Run("offsets from completed date", func(t *testing.T) {
		got := models.Dates(DefaultSchedule(models.MustParseDate("2025-06-01")))
		want := []string{"2025-06-04", "2025-06-08"}
		if !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("crosses month and year", func(t *testing.T) {
		got := models.Dates(DefaultSchedule(models.MustParseDate("2025-12-28")))
		want := []string{"2025-12-31", "2026-01-04"}
		if !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})
}

func TestAddRevision(t *testing.T) {
	anchor := models.MustParseDate("2025-06-01")

	t.Run("appends a week after the last entry", func(t *testing.T) {
		list := dates("2025-06-04")
		got := models.Dates(AddRevision(list, anchor))
		want := []string{"2025-06-04", "2025-06-11"}
		if !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
		if len(list) != 1 {
			t.Errorf("input list was modified: %v", models.Dates(list))
		}
	})

	t.Run("uses anchor when empty", func(t *testing.T) {
		got := models.Dates(AddRevision(nil, anchor))
		if !slices.Equal(got, []string{"2025-06-08"}) {
			t.Errorf("expected [2025-06-08], got %v", got)
		}
	})

	t.Run("last entry wins over earlier ones", func(t *testing.T) {
		got := models.Dates(AddRevision(dates("2025-06-20", "2025-06-04"), anchor))
		if got[2] != "2025-06-11" {
			t.Errorf("expected append after last entry, got %v", got)
		}
	})
}

func TestRemoveRevision(t *testing.T) {
	list := dates("2025-06-04", "2025-06-08", "2025-06-15")

	t.Run("removes by position", func(t *testing.T) {
		got, err := RemoveRevision(list, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"2025-06-04", "2025-06-15"}
		if !slices.Equal(models.Dates(got), want) {
			t.Errorf("expected %v, got %v", want, models.Dates(got))
		}
		if list[1].String() != "2025-06-08" {
			t.Error("input list was modified")
		}
	})

	t.Run("out of range", func(t *testing.T) {
		for _, idx := range []int{-1, 3} {
			if _, err := RemoveRevision(list, idx); !errors.Is(err, shared.ErrInvalidIndex) {
				t.Errorf("index %d: expected ErrInvalidIndex, got %v", idx, err)
			}
		}
	})
}

func TestUpdateRevision(t *testing.T) {
	list := dates("2025-06-04", "2025-06-08")

	got, err := UpdateRevision(list, 0, models.MustParseDate("2025-06-05"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].String() != "2025-06-05" || got[1].String() != "2025-06-08" {
		t.Errorf("unexpected result %v", models.Dates(got))
	}

	if _, err := UpdateRevision(list, 0, models.Date{}); !errors.Is(err, shared.ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := UpdateRevision(list, 5, models.MustParseDate("2025-06-05")); !errors.Is(err, shared.ErrInvalidIndex) {
		t.Errorf("expected ErrInvalidIndex, got %v", err)
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from, to models.RevisionStatus
		ok       bool
	}{
		{models.StatusPending, models.StatusDone, true},
		{models.StatusDone, models.StatusPending, true},
		{models.StatusPending, models.StatusSkipped, true},
		{models.StatusPending, models.StatusPostponed, true},
		{models.StatusDone, models.StatusPostponed, false},
		{models.StatusDone, models.StatusSkipped, false},
		{models.StatusSkipped, models.StatusDone, false},
		{models.StatusPostponed, models.StatusPending, false},
		{models.StatusPending, models.StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+" to "+string(tt.to), func(t *testing.T) {
			err := Transition(tt.from, tt.to)
			if tt.ok && err != nil {
				t.Errorf("expected legal transition, got %v", err)
			}
			if !tt.ok && !errors.Is(err, shared.ErrIllegalTransition) {
				t.Errorf("expected ErrIllegalTransition, got %v", err)
			}
		})
	}
}

func TestToggleRoundTrip(t *testing.T) {
	rev := models.Revision{
		ID:            "r1",
		ScheduledDate: models.MustParseDate("2025-06-04"),
		Status:        models.StatusPending,
	}

	done, err := SetStatus(rev, Toggle(rev.Status))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != models.StatusDone {
		t.Errorf("expected done, got %s", done.Status)
	}

	back, err := SetStatus(done, Toggle(done.Status))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back != rev {
		t.Errorf("expected %+v after round trip, got %+v", rev, back)
	}
}

func TestSetStatusRejectsIllegal(t *testing.T) {
	rev := models.Revision{ID: "r1", Status: models.StatusDone}
	got, err := SetStatus(rev, models.StatusPostponed)
	if !errors.Is(err, shared.ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}
	if got.Status != models.StatusDone {
		t.Errorf("status changed on failure: %s", got.Status)
	}
}

func TestSortRevisions(t *testing.T) {
	revs := []models.Revision{
		{ID: "c", ScheduledDate: models.MustParseDate("2025-06-11")},
		{ID: "a", ScheduledDate: models.MustParseDate("2025-06-04")},
		{ID: "b", ScheduledDate: models.MustParseDate("2025-06-04")},
	}
	SortRevisions(revs)

	var ids []string
	for _, r := range revs {
		ids = append(ids, r.ID)
	}
	if !slices.Equal(ids, []string{"a", "b", "c"}) {
		t.Errorf("expected stable date order, got %v", ids)
	}
}

func TestTomorrow(t *testing.T) {
	now := time.Date(2025, 6, 6, 23, 30, 0, 0, time.UTC) // Friday
	if got := Tomorrow(now).String(); got != "2025-06-07" {
		t.Errorf("expected 2025-06-07, got %s", got)
	}
}
