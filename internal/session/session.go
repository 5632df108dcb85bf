package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/services"
	"github.com/desertthunder/revu/internal/shared"
)

// State is the session lifecycle.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	TwoFactorPending
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case TwoFactorPending:
		return "two-factor-pending"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const (
	logoutTimeout = 5 * time.Second

	msgInvalidCredentials = "Invalid credentials"
	msgInvalidOTP         = "Invalid OTP"
	msgOTPFailed          = "OTP verification failed"
	msgSignupFailed       = "Signup failed"
	msgForgotFailed       = "Failed to send reset email"
	msgResetTokenInvalid  = "Invalid or expired reset token"
	msgResetFailed        = "Failed to reset password"
	msgVerifyEmailFailed  = "Email verification failed"
	msgVerifyEmailOK      = "Email verified successfully!"
)

// Session is a read-only snapshot of the coordinator.
type Session struct {
	User          *models.User
	State         State
	HasCredential bool
	Expiry        time.Time
}

// LoginResult describes how a login attempt ended.
type LoginResult struct {
	User              *models.User
	RequiresTwoFactor bool
}

// ExpiredEvent is delivered to subscribers when an authenticated session is lost.
type ExpiredEvent struct {
	User *models.User
	Err  error
	At   time.Time
}

// CookieClearer forgets the refresh cookie on logout.
type CookieClearer func(ctx context.Context) error

// AuthError is a failed auth call with the message a user should see.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{shared.ErrAuthFailed}
	}
	return []error{shared.ErrAuthFailed, e.Err}
}

// Coordinator owns the current user and drives the credential store.
type Coordinator struct {
	api    *services.APIService
	auth   *services.AuthClient
	logger *log.Logger
	clock  func() time.Time

	mu    sync.Mutex
	state State
	user  *models.User

	subMu  sync.Mutex
	subs   map[int]func(ExpiredEvent)
	nextID int

	cookies CookieClearer
	bg      sync.WaitGroup
}

// New wires a coordinator to api and registers it for refresh outcomes.
func New(api *services.APIService, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	c := &Coordinator{
		api:    api,
		auth:   services.NewAuthClient(api),
		logger: logger,
		clock:  time.Now,
		subs:   map[int]func(ExpiredEvent){},
	}
	api.Refresher().SetHooks(services.RefreshHooks{
		OnRefreshed:     c.refreshed,
		OnRefreshFailed: c.refreshFailed,
	})
	return c
}

// SetCookieClearer makes Logout forget persisted cookies as well.
func (c *Coordinator) SetCookieClearer(cc CookieClearer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookies = cc
}

// Snapshot returns the current session.
func (c *Coordinator) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Session{
		User:          c.user,
		State:         c.state,
		HasCredential: c.api.Credentials().Present(),
		Expiry:        c.api.Credentials().Expiry(),
	}
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn for session-expired events and returns a function
// that removes it. fn runs on the goroutine that observed the failure.
func (c *Coordinator) Subscribe(fn func(ExpiredEvent)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

// Login authenticates with email and password. A failed login returns to
// Anonymous with the server's message, or "Invalid credentials".
func (c *Coordinator) Login(ctx context.Context, email, password string) (LoginResult, error) {
	prev := c.swapState(Authenticating)

	res, err := c.auth.Login(ctx, email, password)
	switch {
	case err != nil:
		c.restore(prev)
		return LoginResult{}, authError(err, msgInvalidCredentials)
	case res.AccessToken != "":
		c.authenticated(res)
		c.logger.Info("logged in", "email", email)
		return LoginResult{User: res.User}, nil
	case res.RequiresTwoFactor:
		c.setState(TwoFactorPending)
		c.logger.Info("two-factor verification required", "email", email)
		return LoginResult{RequiresTwoFactor: true}, nil
	default:
		c.restore(prev)
		return LoginResult{}, &AuthError{Message: msgInvalidCredentials}
	}
}

// VerifyTwoFactor completes a login that required a one-time code. It is only
// valid from TwoFactorPending; a rejected code leaves the state unchanged.
func (c *Coordinator) VerifyTwoFactor(ctx context.Context, code string) (*models.User, error) {
	if st := c.State(); st != TwoFactorPending {
		return nil, fmt.Errorf("%w: two-factor verification from %s", shared.ErrInvalidState, st)
	}

	res, err := c.auth.VerifyOTP(ctx, code)
	if err != nil {
		return nil, authError(err, msgOTPFailed)
	}
	if res.AccessToken == "" {
		return nil, &AuthError{Message: msgInvalidOTP}
	}

	c.authenticated(res)
	return res.User, nil
}

// Signup registers an account. The server emails a verification link; the
// session is not authenticated.
func (c *Coordinator) Signup(ctx context.Context, email, password string) error {
	if _, err := c.auth.Signup(ctx, email, password); err != nil {
		return authError(err, msgSignupFailed)
	}
	return nil
}

func (c *Coordinator) ForgotPassword(ctx context.Context, email string) error {
	if _, err := c.auth.ForgotPassword(ctx, email); err != nil {
		return authError(err, msgForgotFailed)
	}
	return nil
}

func (c *Coordinator) VerifyResetToken(ctx context.Context, token string) error {
	if _, err := c.auth.VerifyResetToken(ctx, token); err != nil {
		return authError(err, msgResetTokenInvalid)
	}
	return nil
}

func (c *Coordinator) ResetPassword(ctx context.Context, token, password string) error {
	if _, err := c.auth.ResetPassword(ctx, token, password); err != nil {
		return authError(err, msgResetFailed)
	}
	return nil
}

// VerifyEmail confirms an address and returns the server's message.
func (c *Coordinator) VerifyEmail(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: Invalid verification link. No token provided.", shared.ErrMissingArgument)
	}

	msg, err := c.auth.VerifyEmail(ctx, token)
	if err != nil {
		if msg != nil && msg.Error != "" {
			return "", &AuthError{Message: msg.Error, Err: err}
		}
		return "", authError(err, msgVerifyEmailFailed)
	}
	if msg.Message != "" {
		return msg.Message, nil
	}
	return msgVerifyEmailOK, nil
}

// Logout clears the credential and user immediately, then tells the server in
// the background. A failed notification is logged and never returned.
func (c *Coordinator) Logout(ctx context.Context) {
	c.mu.Lock()
	c.api.Credentials().Clear()
	c.user = nil
	c.state = Anonymous
	cookies := c.cookies
	c.mu.Unlock()

	c.logger.Info("logged out")

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
		defer cancel()

		if err := c.auth.Logout(ctx); err != nil {
			c.logger.Warn("logout notification failed", "error", err)
		}
		if cookies != nil {
			if err := cookies(ctx); err != nil {
				c.logger.Warn("failed to clear stored cookies", "error", err)
			}
		}
	}()
}

// Wait blocks until background logout notifications have finished.
func (c *Coordinator) Wait() {
	c.bg.Wait()
}

// RefreshAuth probes for a session using the refresh cookie. It reports false
// without an error when the server has no session for this client.
func (c *Coordinator) RefreshAuth(ctx context.Context) (bool, error) {
	res, err := c.auth.Refresh(ctx)
	if err == nil {
		// The refresh hook has already installed the user; keep any that a
		// shortcut result left out.
		c.mu.Lock()
		if !c.api.Credentials().Present() {
			c.mu.Unlock()
			return false, nil
		}
		if res.User != nil {
			c.user = res.User
		}
		c.state = Authenticated
		c.mu.Unlock()
		return true, nil
	}

	if services.IsStatus(err, http.StatusUnauthorized) || errors.Is(err, shared.ErrSessionExpired) {
		c.mu.Lock()
		c.api.Credentials().Clear()
		c.user = nil
		c.state = Anonymous
		c.mu.Unlock()
		return false, nil
	}
	return false, err
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Coordinator) swapState(s State) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.state
	c.state = s
	return prev
}

// restore undoes a failed login attempt. Only an authenticated session
// survives it; anything else falls back to Anonymous.
func (c *Coordinator) restore(prev State) {
	if prev != Authenticated || !c.api.Credentials().Present() {
		prev = Anonymous
	}
	c.setState(prev)
}

func (c *Coordinator) authenticated(res *services.AuthResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.api.Credentials().Set(res.AccessToken)
	c.user = res.User
	c.state = Authenticated
}

// refreshed runs inside the refresh flight, before waiters are released. It
// is ignored when the credential changed after the refreshed token was stored.
func (c *Coordinator) refreshed(user *models.User, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, cur := c.api.Credentials().Current(); cur != gen {
		return
	}
	if user != nil {
		c.user = user
	}
	c.state = Authenticated
}

// refreshFailed tears the session down. The expiry event fires only when a
// user was authenticated; the state drops to Anonymous, so later failures in
// the same episode stay silent.
func (c *Coordinator) refreshFailed(err error) {
	c.mu.Lock()
	notify := c.state == Authenticated
	user := c.user
	c.user = nil
	c.state = Anonymous
	c.mu.Unlock()

	if !notify {
		return
	}

	c.logger.Warn("session expired", "error", err)
	ev := ExpiredEvent{User: user, Err: err, At: c.clock()}

	c.subMu.Lock()
	subs := make([]func(ExpiredEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func authError(err error, fallback string) error {
	return &AuthError{Message: services.ErrorMessage(err, fallback), Err: err}
}
