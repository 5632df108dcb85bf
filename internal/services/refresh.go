package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/shared"
	"golang.org/x/sync/singleflight"
)

const (
	refreshKey     = "refresh"
	refreshTimeout = 10 * time.Second
)

// RefreshFunc performs the network refresh call.
type RefreshFunc func(ctx context.Context) (*AuthResponse, error)

// RefreshHooks observe the outcome of each refresh flight. They run before
// any waiter is released, and only when the flight's result was applied to
// the store. OnRefreshed receives the generation the new token was stored at.
type RefreshHooks struct {
	OnRefreshed     func(user *models.User, gen uint64)
	OnRefreshFailed func(err error)
}

// RefreshCoordinator makes sure concurrent authorization failures share a
// single refresh call.
type RefreshCoordinator struct {
	store   *CredentialStore
	refresh RefreshFunc
	group   singleflight.Group
	logger  *log.Logger
	timeout time.Duration

	mu    sync.RWMutex
	hooks RefreshHooks
}

func NewRefreshCoordinator(store *CredentialStore, fn RefreshFunc, logger *log.Logger) *RefreshCoordinator {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &RefreshCoordinator{
		store:   store,
		refresh: fn,
		logger:  logger,
		timeout: refreshTimeout,
	}
}

// SetHooks replaces the outcome hooks.
func (c *RefreshCoordinator) SetHooks(h RefreshHooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = h
}

// Refresh returns a credential newer than generation sentGen.
//
// When the store has already moved past sentGen, the storm this caller
// belongs to is over: its token is returned as-is, or ErrSessionExpired if it
// ended in failure. Otherwise the caller joins the in-flight refresh or
// starts one.
func (c *RefreshCoordinator) Refresh(ctx context.Context, sentGen uint64) (string, error) {
	res, err := c.do(ctx, func() (*AuthResponse, error) {
		if tok, gen := c.store.Current(); gen != sentGen {
			if tok == "" {
				return nil, fmt.Errorf("%w: credential cleared during refresh", shared.ErrSessionExpired)
			}
			return &AuthResponse{AccessToken: tok}, nil
		}
		return nil, nil
	})
	if err != nil {
		return "", err
	}
	return res.AccessToken, nil
}

// RefreshSession always joins or starts a network refresh. It is used to
// probe for an existing session at startup.
func (c *RefreshCoordinator) RefreshSession(ctx context.Context) (*AuthResponse, error) {
	return c.do(ctx, nil)
}

// do runs the flight. check may short-circuit it; it is evaluated both before
// joining and inside the flight, so a caller that races a finishing flight
// never triggers a second network call.
func (c *RefreshCoordinator) do(ctx context.Context, check func() (*AuthResponse, error)) (*AuthResponse, error) {
	if check != nil {
		if res, err := check(); res != nil || err != nil {
			return res, err
		}
	}

	ch := c.group.DoChan(refreshKey, func() (any, error) {
		if check != nil {
			if res, err := check(); res != nil || err != nil {
				return res, err
			}
		}
		return c.flight(ctx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*AuthResponse), nil
	}
}

// flight performs the network refresh and applies its outcome. Waiters are
// released by singleflight only after this returns.
//
// The outcome is applied only if the store has not moved since the flight
// started. A Clear in the meantime (logout) wins over a late success, and a
// Set (login) wins over a late failure.
func (c *RefreshCoordinator) flight(ctx context.Context) (*AuthResponse, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	c.mu.RLock()
	hooks := c.hooks
	c.mu.RUnlock()

	_, startGen := c.store.Current()
	res, err := c.refresh(ctx)
	if err != nil {
		if _, ok := c.store.ClearIf(startGen); !ok {
			c.logger.Debug("token refresh failed after the credential changed", "error", err)
			return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
		}
		c.logger.Warn("token refresh failed", "error", err)
		if hooks.OnRefreshFailed != nil {
			hooks.OnRefreshFailed(err)
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	gen, ok := c.store.SetIf(startGen, res.AccessToken)
	if !ok {
		tok, _ := c.store.Current()
		if tok == "" {
			c.logger.Debug("discarding refreshed token, credential cleared during refresh")
			return nil, fmt.Errorf("%w: credential cleared during refresh", shared.ErrSessionExpired)
		}
		c.logger.Debug("discarding refreshed token, credential replaced during refresh")
		return &AuthResponse{AccessToken: tok}, nil
	}

	c.logger.Debug("token refreshed", "expiry", c.store.Expiry())
	if hooks.OnRefreshed != nil {
		hooks.OnRefreshed(res.User, gen)
	}
	return res, nil
}
