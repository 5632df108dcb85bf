package schedule

import (
	"fmt"

	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/shared"
)

// transitions lists the legal targets per current status. done is terminal
// except for the explicit toggle back to pending.
var transitions = map[models.RevisionStatus][]models.RevisionStatus{
	models.StatusPending: {models.StatusDone, models.StatusSkipped, models.StatusPostponed},
	models.StatusDone:    {models.StatusPending},
}

// Transition reports whether a revision may move from one status to another.
func Transition(from, to models.RevisionStatus) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", shared.ErrIllegalTransition, from, to)
}

// Toggle is the done/pending switch offered on a due revision.
func Toggle(current models.RevisionStatus) models.RevisionStatus {
	if current == models.StatusDone {
		return models.StatusPending
	}
	return models.StatusDone
}

// SetStatus applies a checked transition to rev and returns the updated copy.
// The scheduled date is never changed here; postponement moves the date server-side.
func SetStatus(rev models.Revision, to models.RevisionStatus) (models.Revision, error) {
	if err := Transition(rev.Status, to); err != nil {
		return rev, err
	}
	rev.Status = to
	return rev, nil
}
