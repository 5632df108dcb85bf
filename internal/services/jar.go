package services

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/revu/internal/shared"
)

// CookieStore persists cookies per host.
type CookieStore interface {
	SaveCookies(ctx context.Context, host string, cookies []*http.Cookie) error
	LoadCookies(ctx context.Context, host string) ([]*http.Cookie, error)
	ClearCookies(ctx context.Context, host string) error
}

// PersistentJar is an [http.CookieJar] that mirrors cookies into a [CookieStore],
// so the refresh cookie outlives the process.
type PersistentJar struct {
	mu     sync.RWMutex
	jar    *cookiejar.Jar
	store  CookieStore
	logger *log.Logger
}

func NewPersistentJar(store CookieStore, logger *log.Logger) (*PersistentJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &PersistentJar{jar: jar, store: store, logger: logger}, nil
}

func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	jar := j.jar
	j.mu.RUnlock()

	jar.SetCookies(u, cookies)
	if j.store == nil || len(cookies) == 0 {
		return
	}
	if err := j.store.SaveCookies(context.Background(), u.Host, cookies); err != nil {
		j.logger.Warn("failed to persist cookies", "host", u.Host, "error", err)
	}
}

func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

// Restore loads stored cookies for u's host into memory.
func (j *PersistentJar) Restore(ctx context.Context, u *url.URL) (int, error) {
	if j.store == nil {
		return 0, nil
	}
	cookies, err := j.store.LoadCookies(ctx, u.Host)
	if err != nil {
		return 0, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
	return len(cookies), nil
}

// Clear forgets every cookie, in memory and in the store for u's host.
func (j *PersistentJar) Clear(ctx context.Context, u *url.URL) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}

	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()

	if j.store == nil {
		return nil
	}
	return j.store.ClearCookies(ctx, u.Host)
}
