package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/shared"
)

// DayCacheRepository keeps the last successful calendar view per date, so
// the day board can show something while the API is unreachable.
type DayCacheRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewDayCacheRepository creates a new [DayCacheRepository] with the given database connection
func NewDayCacheRepository(db *sql.DB) *DayCacheRepository {
	return &DayCacheRepository{db: db, now: utcNow}
}

// Put stores view, replacing any earlier copy for the same date.
func (r *DayCacheRepository) Put(ctx context.Context, view models.DayView) error {
	if view.Date.IsZero() {
		return fmt.Errorf("%w: day view without date", shared.ErrInvalidDate)
	}

	view.Stale = false
	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to encode day view: %w", err)
	}

	query := `
		INSERT INTO day_views (date, payload, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at
	`
	if _, err := r.db.ExecContext(ctx, query, view.Date.String(), string(payload), r.now()); err != nil {
		return fmt.Errorf("failed to cache day view: %w", err)
	}
	return nil
}

// Get returns the cached view for date with the time it was fetched.
// A missing entry is reported as [shared.ErrNotFound].
func (r *DayCacheRepository) Get(ctx context.Context, date models.Date) (*models.DayView, time.Time, error) {
	var (
		payload   string
		fetchedAt time.Time
	)

	err := r.db.QueryRowContext(ctx, `SELECT payload, fetched_at FROM day_views WHERE date = ?`, date.String()).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, fmt.Errorf("%w: no cached view for %s", shared.ErrNotFound, date)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query day view: %w", err)
	}

	var view models.DayView
	if err := json.Unmarshal([]byte(payload), &view); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to decode day view: %w", err)
	}
	view.Date = date
	return &view, fetchedAt, nil
}

// Prune drops entries fetched before cutoff and reports how many were removed.
func (r *DayCacheRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM day_views WHERE fetched_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune day views: %w", err)
	}
	return res.RowsAffected()
}
