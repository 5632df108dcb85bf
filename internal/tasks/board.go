package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/schedule"
	"github.com/desertthunder/revu/internal/services"
	"github.com/desertthunder/revu/internal/shared"
)

// DayFetcher loads the server's view of one date.
type DayFetcher interface {
	Day(ctx context.Context, date models.Date) (*models.DayView, error)
}

// TaskAPI is the subset of [services.TasksClient] the board uses.
type TaskAPI interface {
	Create(ctx context.Context, in services.TaskInput) (*models.Task, error)
	Update(ctx context.Context, id string, in services.TaskInput) (*models.Task, error)
	Get(ctx context.Context, id string) (*models.Task, error)
	UpdateRevisionStatus(ctx context.Context, taskID, revisionID string, status models.RevisionStatus) (*services.StatusUpdate, error)
}

// DayCache keeps the last good view per date.
type DayCache interface {
	Put(ctx context.Context, view models.DayView) error
	Get(ctx context.Context, date models.Date) (*models.DayView, time.Time, error)
}

// Board is the client-side day view: the selected date, what the server last
// said about it, and the operations that change it.
type Board struct {
	calendar DayFetcher
	tasks    TaskAPI
	cache    DayCache
	progress chan<- ProgressUpdate
	logger   *log.Logger

	mu       sync.Mutex
	selected models.Date
	view     *models.DayView
}

// BoardOption configures a [Board].
type BoardOption func(*Board)

// WithCache serves cached views when the API is unreachable.
func WithCache(c DayCache) BoardOption {
	return func(b *Board) { b.cache = c }
}

// WithProgress sends [ProgressUpdate] values to ch without blocking.
func WithProgress(ch chan<- ProgressUpdate) BoardOption {
	return func(b *Board) { b.progress = ch }
}

func WithLogger(l *log.Logger) BoardOption {
	return func(b *Board) { b.logger = l }
}

// NewBoard creates a board with today selected.
func NewBoard(calendar DayFetcher, tasks TaskAPI, opts ...BoardOption) *Board {
	b := &Board{
		calendar: calendar,
		tasks:    tasks,
		logger:   shared.DiscardLogger(),
		selected: models.Today(nil),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Select changes the selected date. The current view is dropped when the
// date changes.
func (b *Board) Select(date models.Date) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.selected.Equal(date) {
		return
	}
	b.selected = date
	b.view = nil
}

func (b *Board) Selected() models.Date {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected
}

// View returns a copy of the current view and whether one is loaded.
func (b *Board) View() (models.DayView, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.view == nil {
		return models.DayView{}, false
	}
	return b.view.Clone(), true
}

// Load selects date and refreshes it.
func (b *Board) Load(ctx context.Context, date models.Date) (models.DayView, error) {
	b.Select(date)
	return b.Refresh(ctx)
}

// Refresh fetches the selected date.
//
// The result is applied only if the same date is still selected when the
// fetch returns; otherwise it is dropped with [shared.ErrStaleResult]. When
// the API is unreachable and a cached copy exists, the cached copy is applied
// with Stale set.
func (b *Board) Refresh(ctx context.Context) (models.DayView, error) {
	date := b.Selected()
	b.sendProgress(fetchDayUpdate(date))

	view, err := b.calendar.Day(ctx, date)
	if err != nil {
		cached, ok := b.fromCache(ctx, date, err)
		if !ok {
			return models.DayView{}, err
		}
		view = cached
	} else {
		b.store(ctx, *view)
	}

	if !b.apply(date, view) {
		b.sendProgress(discardStaleUpdate(date))
		return models.DayView{}, fmt.Errorf("%w: %s", shared.ErrStaleResult, date)
	}
	return view.Clone(), nil
}

// ChangeRevisionStatus moves a due revision to status.
//
// Unknown revisions and illegal transitions are rejected before any network
// call. Nothing changes locally unless the server accepts the update. A
// postponed revision leaves today's list at once; the day is then re-fetched,
// and if that fails the removal stands.
func (b *Board) ChangeRevisionStatus(ctx context.Context, revisionID string, to models.RevisionStatus) (*services.StatusUpdate, error) {
	rev, date, err := b.lookup(revisionID)
	if err != nil {
		return nil, err
	}
	if err := schedule.Transition(rev.Status, to); err != nil {
		return nil, err
	}

	upd, err := b.tasks.UpdateRevisionStatus(ctx, rev.TaskID, rev.ID, to)
	if err != nil {
		return nil, err
	}

	if to != models.StatusPostponed {
		b.mutate(date, func(v *models.DayView) {
			if i := v.Revision(revisionID); i >= 0 {
				v.RevisionsDue[i].Status = to
			}
		})
		b.sendProgress(changeStatusUpdate(rev, to))
		return upd, nil
	}

	b.mutate(date, func(v *models.DayView) {
		v.RevisionsDue = slices.DeleteFunc(v.RevisionsDue, func(r models.Revision) bool { return r.ID == revisionID })
	})
	b.sendProgress(removePostponedUpdate(rev, upd.PostponeInfo))

	b.reconcile(ctx, date)
	return upd, nil
}

// Toggle flips a due revision between done and pending.
func (b *Board) Toggle(ctx context.Context, revisionID string) (*services.StatusUpdate, error) {
	rev, _, err := b.lookup(revisionID)
	if err != nil {
		return nil, err
	}
	return b.ChangeRevisionStatus(ctx, revisionID, schedule.Toggle(rev.Status))
}

// Revision returns a due revision from the current view.
func (b *Board) Revision(revisionID string) (models.Revision, error) {
	rev, _, err := b.lookup(revisionID)
	return rev, err
}

// reconcile re-fetches date after an optimistic change. Failures are logged;
// the cache is never consulted, so a stale copy cannot resurrect the change.
func (b *Board) reconcile(ctx context.Context, date models.Date) {
	view, err := b.calendar.Day(ctx, date)
	if err != nil {
		b.logger.Warn("re-fetch after postpone failed, keeping local removal", "date", date, "error", err)
		b.sendProgress(reconcileUpdate(date, err))
		return
	}

	b.store(ctx, *view)
	if !b.apply(date, view) {
		b.sendProgress(discardStaleUpdate(date))
		return
	}
	b.sendProgress(reconcileUpdate(date, nil))
}

func (b *Board) lookup(revisionID string) (models.Revision, models.Date, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.view == nil {
		return models.Revision{}, models.Date{}, fmt.Errorf("%w: %s (no day loaded)", shared.ErrRevisionNotFound, revisionID)
	}
	i := b.view.Revision(revisionID)
	if i < 0 {
		return models.Revision{}, models.Date{}, fmt.Errorf("%w: %s on %s", shared.ErrRevisionNotFound, revisionID, b.view.Date)
	}
	return b.view.RevisionsDue[i], b.view.Date, nil
}

// apply installs view when date is still selected.
func (b *Board) apply(date models.Date, view *models.DayView) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.selected.Equal(date) {
		return false
	}
	v := view.Clone()
	schedule.SortRevisions(v.RevisionsDue)
	b.view = &v
	return true
}

// mutate edits the current view in place when it still shows date.
func (b *Board) mutate(date models.Date, fn func(v *models.DayView)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.view == nil || !b.view.Date.Equal(date) {
		return
	}
	fn(b.view)
}

func (b *Board) fromCache(ctx context.Context, date models.Date, cause error) (*models.DayView, bool) {
	if b.cache == nil || !offline(cause) {
		return nil, false
	}

	view, fetchedAt, err := b.cache.Get(ctx, date)
	if err != nil {
		return nil, false
	}

	b.logger.Warn("API unreachable, using cached day view", "date", date, "fetched_at", fetchedAt, "error", cause)
	b.sendProgress(cachedDayUpdate(date))
	view.Stale = true
	return view, true
}

func (b *Board) store(ctx context.Context, view models.DayView) {
	if b.cache == nil {
		return
	}
	if err := b.cache.Put(ctx, view); err != nil {
		b.logger.Warn("failed to cache day view", "date", view.Date, "error", err)
	}
}

// sendProgress sends an update if a progress channel is configured.
// Uses select with default to ensure progress reporting never blocks execution.
func (b *Board) sendProgress(update ProgressUpdate) {
	if b.progress == nil {
		return
	}
	select {
	case b.progress <- update:
	default:
	}
}

func offline(err error) bool {
	return errors.Is(err, shared.ErrNetwork) || errors.Is(err, shared.ErrServiceUnavailable)
}
