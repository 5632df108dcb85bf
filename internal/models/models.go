package models

import (
	"fmt"
	"slices"
)

// User is the authenticated account.
type User struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
	Timezone         string `json:"timezone,omitempty"`
}

// RevisionStatus is the lifecycle state of a [Revision].
type RevisionStatus string

const (
	StatusPending   RevisionStatus = "pending"
	StatusDone      RevisionStatus = "done"
	StatusSkipped   RevisionStatus = "skipped"
	StatusPostponed RevisionStatus = "postponed"
)

// ParseRevisionStatus validates a status name.
func ParseRevisionStatus(s string) (RevisionStatus, error) {
	switch st := RevisionStatus(s); st {
	case StatusPending, StatusDone, StatusSkipped, StatusPostponed:
		return st, nil
	}
	return "", fmt.Errorf("unknown revision status %q", s)
}

// Revision is a scheduled review of a task.
type Revision struct {
	ID            string         `json:"id"`
	TaskID        string         `json:"taskId"`
	Title         string         `json:"title"`
	Notes         string         `json:"notes,omitempty"`
	ScheduledDate Date           `json:"scheduledDate"`
	Status        RevisionStatus `json:"status"`
}

// Task is a piece of completed work and the revisions scheduled from it.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Notes         string     `json:"notes,omitempty"`
	CompletedDate Date       `json:"completedDate"`
	Revisions     []Revision `json:"revisions,omitempty"`
}

// DayView is the calendar response for one date.
type DayView struct {
	Date           Date       `json:"date"`
	CompletedTasks []Task     `json:"completedTasks"`
	RevisionsDue   []Revision `json:"revisionsScheduledForDate"`
	Stale          bool       `json:"stale,omitempty"` // Served from the local cache
}

// Clone returns a deep copy safe to hand to callers.
func (v DayView) Clone() DayView {
	v.CompletedTasks = slices.Clone(v.CompletedTasks)
	v.RevisionsDue = slices.Clone(v.RevisionsDue)
	return v
}

// Revision returns the index of the due revision with id, or -1.
func (v DayView) Revision(id string) int {
	return slices.IndexFunc(v.RevisionsDue, func(r Revision) bool { return r.ID == id })
}

// PostponeInfo is returned by the server when a revision is postponed.
type PostponeInfo struct {
	NewDate Date `json:"newDate"`
}
