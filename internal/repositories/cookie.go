package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"
)

// CookieRepository persists cookies set by the API host.
//
// It implements [services.CookieStore]. Cookies deleted by the server
// (MaxAge < 0 or an expiry in the past) are removed instead of stored.
type CookieRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewCookieRepository creates a new [CookieRepository] with the given database connection
func NewCookieRepository(db *sql.DB) *CookieRepository {
	return &CookieRepository{db: db, now: utcNow}
}

// SaveCookies upserts cookies for host in a single transaction.
func (r *CookieRepository) SaveCookies(ctx context.Context, host string, cookies []*http.Cookie) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := r.now()
	for _, c := range cookies {
		if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(now)) {
			if _, err := tx.ExecContext(ctx, `DELETE FROM cookies WHERE host = ? AND name = ?`, host, c.Name); err != nil {
				return fmt.Errorf("failed to delete cookie %s: %w", c.Name, err)
			}
			continue
		}

		var expires sql.NullTime
		switch {
		case c.MaxAge > 0:
			expires = sql.NullTime{Time: now.Add(time.Duration(c.MaxAge) * time.Second), Valid: true}
		case !c.Expires.IsZero():
			expires = sql.NullTime{Time: c.Expires.UTC(), Valid: true}
		}

		query := `
			INSERT INTO cookies (host, name, value, path, expires_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(host, name) DO UPDATE SET
				value = excluded.value, path = excluded.path, expires_at = excluded.expires_at, updated_at = excluded.updated_at
		`
		if _, err := tx.ExecContext(ctx, query, host, c.Name, c.Value, c.Path, expires, now); err != nil {
			return fmt.Errorf("failed to save cookie %s: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cookies: %w", err)
	}
	return nil
}

// LoadCookies returns the unexpired cookies stored for host.
func (r *CookieRepository) LoadCookies(ctx context.Context, host string) ([]*http.Cookie, error) {
	query := `
		SELECT name, value, path, expires_at
		FROM cookies
		WHERE host = ? AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query, host, r.now())
	if err != nil {
		return nil, fmt.Errorf("failed to query cookies: %w", err)
	}
	defer rows.Close()

	var cookies []*http.Cookie
	for rows.Next() {
		var (
			c       http.Cookie
			expires sql.NullTime
		)
		if err := rows.Scan(&c.Name, &c.Value, &c.Path, &expires); err != nil {
			return nil, fmt.Errorf("failed to scan cookie: %w", err)
		}
		if expires.Valid {
			c.Expires = expires.Time
		}
		cookies = append(cookies, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cookies: %w", err)
	}
	return cookies, nil
}

// ClearCookies removes every cookie stored for host.
func (r *CookieRepository) ClearCookies(ctx context.Context, host string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cookies WHERE host = ?`, host); err != nil {
		return fmt.Errorf("failed to clear cookies: %w", err)
	}
	return nil
}
