// Package schedule holds the revision rules: default spacing, editing a task's
// revision dates before save, and the legal status transitions. Nothing here
// performs I/O.
package schedule

import (
	"fmt"
	"slices"
	"time"

	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/shared"
)

const (
	// FirstOffset and SecondOffset are the default review spacing in days.
	FirstOffset  = 3
	SecondOffset = 7
	// NextOffset is the gap used when a revision is appended.
	NextOffset = 7
)

// DefaultSchedule returns the two revisions offered for a task completed on completed.
func DefaultSchedule(completed models.Date) []models.Date {
	return []models.Date{completed.AddDays(FirstOffset), completed.AddDays(SecondOffset)}
}

// AddRevision appends a date one week after the last entry, or after anchor
// when the list is empty. list is not modified.
func AddRevision(list []models.Date, anchor models.Date) []models.Date {
	base := anchor
	if len(list) > 0 {
		base = list[len(list)-1]
	}
	return append(slices.Clone(list), base.AddDays(NextOffset))
}

// RemoveRevision drops the entry at index. Other dates are untouched.
func RemoveRevision(list []models.Date, index int) ([]models.Date, error) {
	if index < 0 || index >= len(list) {
		return nil, fmt.Errorf("%w: %d of %d", shared.ErrInvalidIndex, index, len(list))
	}
	return slices.Delete(slices.Clone(list), index, index+1), nil
}

// UpdateRevision replaces the date at index.
func UpdateRevision(list []models.Date, index int, date models.Date) ([]models.Date, error) {
	if index < 0 || index >= len(list) {
		return nil, fmt.Errorf("%w: %d of %d", shared.ErrInvalidIndex, index, len(list))
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: revision date is empty", shared.ErrInvalidDate)
	}
	out := slices.Clone(list)
	out[index] = date
	return out, nil
}

// SortRevisions orders revisions by scheduled date; equal dates keep their order.
func SortRevisions(revs []models.Revision) {
	slices.SortStableFunc(revs, func(a, b models.Revision) int {
		return a.ScheduledDate.Time().Compare(b.ScheduledDate.Time())
	})
}

// Tomorrow is where the server moves a postponed revision. Weekends and
// holidays are not skipped.
func Tomorrow(now time.Time) models.Date {
	return models.DateOf(now).AddDays(1)
}
