package tasks

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/schedule"
	"github.com/desertthunder/revu/internal/services"
	"github.com/desertthunder/revu/internal/shared"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(models.Date)
		if !ok || d.IsZero() {
			return nil
		}
		return d.String()
	}, models.Date{})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("field"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Draft is a task being edited before it is saved. A zero TaskID means the
// draft creates a new task.
type Draft struct {
	TaskID        string
	Title         string        `validate:"required,max=200" field:"title"`
	Notes         string        `validate:"max=5000" field:"notes"`
	CompletedDate models.Date   `validate:"required" field:"completedDate"`
	Revisions     []models.Date `validate:"dive,required" field:"revisions"`
}

// NewDraft starts a task completed on date with the default schedule.
func NewDraft(date models.Date) *Draft {
	return &Draft{
		CompletedDate: date,
		Revisions:     schedule.DefaultSchedule(date),
	}
}

// DraftFromTask loads a saved task for editing.
func DraftFromTask(t *models.Task) *Draft {
	d := &Draft{
		TaskID:        t.ID,
		Title:         t.Title,
		Notes:         t.Notes,
		CompletedDate: t.CompletedDate,
	}
	for _, r := range t.Revisions {
		d.Revisions = append(d.Revisions, r.ScheduledDate)
	}
	return d
}

// AddRevision appends a revision after the last one, or after the completed
// date when the list is empty.
func (d *Draft) AddRevision() {
	d.Revisions = schedule.AddRevision(d.Revisions, d.CompletedDate)
}

func (d *Draft) RemoveRevision(i int) error {
	revs, err := schedule.RemoveRevision(d.Revisions, i)
	if err != nil {
		return err
	}
	d.Revisions = revs
	return nil
}

func (d *Draft) UpdateRevision(i int, date models.Date) error {
	revs, err := schedule.UpdateRevision(d.Revisions, i, date)
	if err != nil {
		return err
	}
	d.Revisions = revs
	return nil
}

// ResetSchedule replaces the revisions with the default schedule for the
// completed date.
func (d *Draft) ResetSchedule() {
	d.Revisions = schedule.DefaultSchedule(d.CompletedDate)
}

// Validate reports every invalid field, wrapped in [shared.ErrValidation].
func (d *Draft) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", shared.ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", shared.ErrValidation, strings.Join(msgs, "; "))
}

// Input converts the draft to a request body.
func (d *Draft) Input() services.TaskInput {
	return services.TaskInput{
		Title:         strings.TrimSpace(d.Title),
		Notes:         d.Notes,
		CompletedDate: d.CompletedDate,
		Revisions:     slices.Clone(d.Revisions),
	}
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	if ns := fe.Namespace(); strings.HasPrefix(ns, "Draft.revisions[") {
		name = strings.TrimPrefix(ns, "Draft.")
	}
	switch fe.Tag() {
	case "required":
		return name + ": is required"
	case "max":
		return fmt.Sprintf("%s: must be at most %s characters", name, fe.Param())
	}
	return fmt.Sprintf("%s: failed %s", name, fe.Tag())
}

// EditDraft loads a saved task into a draft.
func (b *Board) EditDraft(ctx context.Context, taskID string) (*Draft, error) {
	t, err := b.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return DraftFromTask(t), nil
}

// SaveDraft validates and saves d, then refreshes the selected day. A failed
// refresh is logged and does not fail the save.
func (b *Board) SaveDraft(ctx context.Context, d *Draft) (*models.Task, error) {
	if strings.TrimSpace(d.Title) == "" {
		d.Title = ""
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	var (
		task    *models.Task
		err     error
		created = d.TaskID == ""
	)
	if created {
		task, err = b.tasks.Create(ctx, d.Input())
	} else {
		task, err = b.tasks.Update(ctx, d.TaskID, d.Input())
	}
	if err != nil {
		return nil, err
	}
	b.sendProgress(saveTaskUpdate(task, created))

	if _, err := b.Refresh(ctx); err != nil && !errors.Is(err, shared.ErrStaleResult) {
		b.logger.Warn("refresh after save failed", "date", b.Selected(), "error", err)
	}
	return task, nil
}
