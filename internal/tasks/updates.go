package tasks

import (
	"fmt"

	"github.com/desertthunder/revu/internal/models"
)

// ProgressUpdate reports a step of a board operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchDay Phase = iota
	CachedDay
	DiscardStale
	ChangeStatus
	RemovePostponed
	Reconcile
	SaveTask
)

func (p Phase) String() string {
	switch p {
	case FetchDay:
		return "fetch_day"
	case CachedDay:
		return "cached_day"
	case DiscardStale:
		return "discard_stale"
	case ChangeStatus:
		return "change_status"
	case RemovePostponed:
		return "remove_postponed"
	case Reconcile:
		return "reconcile"
	case SaveTask:
		return "save_task"
	default:
		return ""
	}
}

func fetchDayUpdate(date models.Date) ProgressUpdate {
	return ProgressUpdate{Phase: FetchDay, Message: fmt.Sprintf("Loading %s...", date), Data: date}
}

func cachedDayUpdate(date models.Date) ProgressUpdate {
	return ProgressUpdate{Phase: CachedDay, Message: fmt.Sprintf("Offline: showing saved copy of %s", date), Data: date}
}

func discardStaleUpdate(date models.Date) ProgressUpdate {
	return ProgressUpdate{Phase: DiscardStale, Message: fmt.Sprintf("Discarded result for %s (no longer selected)", date), Data: date}
}

func changeStatusUpdate(rev models.Revision, to models.RevisionStatus) ProgressUpdate {
	return ProgressUpdate{Phase: ChangeStatus, Message: fmt.Sprintf("Revision marked as %s", to), Data: rev}
}

func removePostponedUpdate(rev models.Revision, info *models.PostponeInfo) ProgressUpdate {
	msg := "Revision postponed to tomorrow"
	if info != nil && !info.NewDate.IsZero() {
		msg = fmt.Sprintf("Revision postponed to tomorrow (%s)", info.NewDate.Time().Format("Mon, Jan 2, 2006"))
	}
	return ProgressUpdate{Phase: RemovePostponed, Message: msg, Data: rev}
}

func reconcileUpdate(date models.Date, err error) ProgressUpdate {
	if err != nil {
		return ProgressUpdate{Phase: Reconcile, Message: "Could not refresh; keeping local changes", Data: err}
	}
	return ProgressUpdate{Phase: Reconcile, Message: fmt.Sprintf("Refreshed %s", date), Data: date}
}

func saveTaskUpdate(task *models.Task, created bool) ProgressUpdate {
	verb := "updated"
	if created {
		verb = "created"
	}
	return ProgressUpdate{Phase: SaveTask, Message: fmt.Sprintf("Task %s successfully!", verb), Data: task}
}
