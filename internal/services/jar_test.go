package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
)

type memoryCookies struct {
	mu      sync.Mutex
	byHost  map[string]map[string]*http.Cookie
	saveErr error
}

func newMemoryCookies() *memoryCookies {
	return &memoryCookies{byHost: map[string]map[string]*http.Cookie{}}
}

func (m *memoryCookies) SaveCookies(_ context.Context, host string, cookies []*http.Cookie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.byHost[host] == nil {
		m.byHost[host] = map[string]*http.Cookie{}
	}
	for _, c := range cookies {
		if c.MaxAge < 0 {
			delete(m.byHost[host], c.Name)
			continue
		}
		m.byHost[host][c.Name] = c
	}
	return nil
}

func (m *memoryCookies) LoadCookies(_ context.Context, host string) ([]*http.Cookie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*http.Cookie
	for _, c := range m.byHost[host] {
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryCookies) ClearCookies(_ context.Context, host string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byHost, host)
	return nil
}

func TestPersistentJar(t *testing.T) {
	u, _ := url.Parse("http://api.example.com/api")
	refresh := &http.Cookie{Name: "refresh_token", Value: "abc", Path: "/"}

	t.Run("Mirrors And Restores", func(t *testing.T) {
		store := newMemoryCookies()
		first, err := NewPersistentJar(store, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		first.SetCookies(u, []*http.Cookie{refresh})

		second, _ := NewPersistentJar(store, nil)
		if got := second.Cookies(u); len(got) != 0 {
			t.Fatalf("expected empty jar before restore, got %v", got)
		}

		n, err := second.Restore(context.Background(), u)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 restored cookie, got %d", n)
		}
		got := second.Cookies(u)
		if len(got) != 1 || got[0].Value != "abc" {
			t.Errorf("expected restored refresh cookie, got %v", got)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		store := newMemoryCookies()
		jar, _ := NewPersistentJar(store, nil)
		jar.SetCookies(u, []*http.Cookie{refresh})

		if err := jar.Clear(context.Background(), u); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := jar.Cookies(u); len(got) != 0 {
			t.Errorf("expected empty jar, got %v", got)
		}
		if stored, _ := store.LoadCookies(context.Background(), u.Host); len(stored) != 0 {
			t.Errorf("expected empty store, got %v", stored)
		}
	})

	t.Run("Store Failure Keeps Memory", func(t *testing.T) {
		store := newMemoryCookies()
		store.saveErr = errors.New("disk full")
		jar, _ := NewPersistentJar(store, nil)
		jar.SetCookies(u, []*http.Cookie{refresh})

		if got := jar.Cookies(u); len(got) != 1 {
			t.Errorf("expected cookie in memory despite store failure, got %v", got)
		}
	})

	t.Run("Without Store", func(t *testing.T) {
		jar, _ := NewPersistentJar(nil, nil)
		jar.SetCookies(u, []*http.Cookie{refresh})
		if n, err := jar.Restore(context.Background(), u); n != 0 || err != nil {
			t.Errorf("expected no-op restore, got %d, %v", n, err)
		}
	})
}
