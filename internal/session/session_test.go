package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/revu/internal/models"
	"github.com/desertthunder/revu/internal/services"
	"github.com/desertthunder/revu/internal/shared"
	tu "github.com/desertthunder/revu/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCoordinator(t *testing.T) (*Coordinator, *tu.FakeAPI, *services.APIService) {
	t.Helper()
	f := tu.NewFakeAPI(t)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	api := services.NewAPIService(f.URL(), &http.Client{Jar: jar, Timeout: 5 * time.Second})
	c := New(api, nil)
	t.Cleanup(c.Wait)
	return c, f, api
}

func handleCalendar(f *tu.FakeAPI) {
	f.Handle("GET /calendar", func(w http.ResponseWriter, r *http.Request) {
		tu.WriteJSON(w, http.StatusOK, tu.Envelope(map[string]any{"completedTasks": []any{}, "revisionsScheduledForDate": []any{}}))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("Authenticated", func(t *testing.T) {
		c, f, api := newCoordinator(t)

		res, err := c.Login(ctx, "user@example.com", tu.GoodPassword)
		require.NoError(t, err)
		assert.False(t, res.RequiresTwoFactor)
		assert.Equal(t, "user@example.com", res.User.Email)

		snap := c.Snapshot()
		assert.Equal(t, Authenticated, snap.State)
		assert.True(t, snap.HasCredential)
		tok, _ := api.Credentials().Current()
		assert.Equal(t, f.Token(), tok)
	})

	t.Run("Two Factor Required", func(t *testing.T) {
		c, _, api := newCoordinator(t)

		res, err := c.Login(ctx, tu.TwoFactorUser, tu.GoodPassword)
		require.NoError(t, err)
		assert.True(t, res.RequiresTwoFactor)
		assert.Equal(t, TwoFactorPending, c.State())
		assert.False(t, api.Credentials().Present())
	})

	t.Run("Rejected", func(t *testing.T) {
		c, f, api := newCoordinator(t)

		_, err := c.Login(ctx, "user@example.com", "wrong")
		require.ErrorIs(t, err, shared.ErrAuthFailed)
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
		assert.Equal(t, "Invalid email or password", err.Error())
		assert.Equal(t, Anonymous, c.State())
		assert.False(t, api.Credentials().Present())
		assert.Zero(t, f.RefreshCalls.Load())
	})

	t.Run("Network Failure Uses Fallback Message", func(t *testing.T) {
		api := services.NewAPIService("http://example.invalid/api", &http.Client{
			Transport: tu.NewMockRoundTripper(nil, errors.New("dial tcp: no such host")),
		})
		c := New(api, nil)

		_, err := c.Login(ctx, "user@example.com", tu.GoodPassword)
		require.ErrorIs(t, err, shared.ErrNetwork)
		assert.Equal(t, "Invalid credentials", err.Error())
		assert.Equal(t, Anonymous, c.State())
	})
}

func TestVerifyTwoFactor(t *testing.T) {
	ctx := context.Background()

	t.Run("Only From Pending", func(t *testing.T) {
		c, f, _ := newCoordinator(t)

		_, err := c.VerifyTwoFactor(ctx, tu.GoodOTP)
		require.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Zero(t, f.LogoutCalls.Load()+f.RefreshCalls.Load())
		assert.Equal(t, Anonymous, c.State())
	})

	t.Run("Wrong Code Stays Pending", func(t *testing.T) {
		c, _, _ := newCoordinator(t)
		_, err := c.Login(ctx, tu.TwoFactorUser, tu.GoodPassword)
		require.NoError(t, err)

		_, err = c.VerifyTwoFactor(ctx, "000000")
		require.ErrorIs(t, err, shared.ErrAuthFailed)
		assert.Equal(t, "Invalid OTP", err.Error())
		assert.Equal(t, TwoFactorPending, c.State())
	})

	t.Run("Correct Code Authenticates", func(t *testing.T) {
		c, _, api := newCoordinator(t)
		_, err := c.Login(ctx, tu.TwoFactorUser, tu.GoodPassword)
		require.NoError(t, err)

		user, err := c.VerifyTwoFactor(ctx, tu.GoodOTP)
		require.NoError(t, err)
		assert.Equal(t, tu.TwoFactorUser, user.Email)
		assert.Equal(t, Authenticated, c.State())
		assert.True(t, api.Credentials().Present())
	})
}

func TestSideEffectFlows(t *testing.T) {
	ctx := context.Background()
	c, _, api := newCoordinator(t)

	t.Run("Signup Does Not Authenticate", func(t *testing.T) {
		require.NoError(t, c.Signup(ctx, "new@example.com", "pw"))
		assert.Equal(t, Anonymous, c.State())
		assert.False(t, api.Credentials().Present())

		err := c.Signup(ctx, "taken@example.com", "pw")
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Equal(t, "rejected by /auth/signup", err.Error())
	})

	t.Run("Password Reset", func(t *testing.T) {
		assert.NoError(t, c.ForgotPassword(ctx, "user@example.com"))
		assert.NoError(t, c.VerifyResetToken(ctx, "good"))
		assert.NoError(t, c.ResetPassword(ctx, "good", "new-pw"))

		err := c.VerifyResetToken(ctx, "bad")
		assert.ErrorIs(t, err, shared.ErrAuthFailed)
	})

	t.Run("Verify Email", func(t *testing.T) {
		msg, err := c.VerifyEmail(ctx, "good")
		require.NoError(t, err)
		assert.Equal(t, "ok", msg)

		_, err = c.VerifyEmail(ctx, "used")
		require.Error(t, err)
		assert.Equal(t, "Token already used", err.Error())

		_, err = c.VerifyEmail(ctx, "")
		assert.ErrorIs(t, err, shared.ErrMissingArgument)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("Clears Synchronously When Server Hangs", func(t *testing.T) {
		c, f, api := newCoordinator(t)
		_, err := c.Login(ctx, "user@example.com", tu.GoodPassword)
		require.NoError(t, err)

		f.BlockLogout()
		defer f.ReleaseLogout()
		start := time.Now()
		c.Logout(ctx)

		assert.Less(t, time.Since(start), time.Second)
		assert.False(t, api.Credentials().Present())
		snap := c.Snapshot()
		assert.Equal(t, Anonymous, snap.State)
		assert.Nil(t, snap.User)
	})

	t.Run("Notifies Server And Clears Cookies", func(t *testing.T) {
		c, f, _ := newCoordinator(t)
		_, err := c.Login(ctx, "user@example.com", tu.GoodPassword)
		require.NoError(t, err)

		var cleared atomic.Bool
		c.SetCookieClearer(func(context.Context) error {
			cleared.Store(true)
			return nil
		})

		c.Logout(ctx)
		c.Wait()
		assert.EqualValues(t, 1, f.LogoutCalls.Load())
		assert.True(t, cleared.Load())

		ok, err := c.RefreshAuth(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Refresh In Flight Does Not Undo It", func(t *testing.T) {
		c, f, api := newCoordinator(t)
		handleCalendar(f)
		_, err := c.Login(ctx, "user@example.com", tu.GoodPassword)
		require.NoError(t, err)

		var events atomic.Int32
		c.Subscribe(func(ExpiredEvent) { events.Add(1) })

		f.ExpireToken()
		f.SetRefreshDelay(300 * time.Millisecond)

		done := make(chan error, 1)
		go func() {
			_, err := services.NewCalendarClient(api).Day(ctx, mustDate("2025-06-04"))
			done <- err
		}()

		require.Eventually(t, func() bool { return f.RefreshCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
		c.Logout(ctx)

		err = <-done
		assert.ErrorIs(t, err, shared.ErrSessionExpired)

		snap := c.Snapshot()
		assert.Equal(t, Anonymous, snap.State)
		assert.False(t, snap.HasCredential)
		assert.Nil(t, snap.User)
		assert.Zero(t, events.Load())
	})

	t.Run("Server Failure Is Not Surfaced", func(t *testing.T) {
		api := services.NewAPIService("http://example.invalid/api", &http.Client{
			Transport: tu.NewMockRoundTripper(nil, errors.New("connection reset")),
		})
		c := New(api, nil)
		api.Credentials().Set("token")

		c.Logout(ctx)
		c.Wait()
		assert.False(t, api.Credentials().Present())
	})
}

func TestRefreshAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("No Session Is Not An Error", func(t *testing.T) {
		c, f, _ := newCoordinator(t)
		var events atomic.Int32
		c.Subscribe(func(ExpiredEvent) { events.Add(1) })

		ok, err := c.RefreshAuth(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, Anonymous, c.State())
		assert.EqualValues(t, 1, f.RefreshCalls.Load())
		assert.Zero(t, events.Load())
	})

	t.Run("Resumes Session From Cookie", func(t *testing.T) {
		f := tu.NewFakeAPI(t)
		jar, _ := cookiejar.New(nil)
		u, _ := url.Parse(f.URL())
		jar.SetCookies(u, []*http.Cookie{f.StartSession()})

		api := services.NewAPIService(f.URL(), &http.Client{Jar: jar})
		c := New(api, nil)

		ok, err := c.RefreshAuth(ctx)
		require.NoError(t, err)
		assert.True(t, ok)

		snap := c.Snapshot()
		assert.Equal(t, Authenticated, snap.State)
		assert.Equal(t, "user@example.com", snap.User.Email)
		tok, _ := api.Credentials().Current()
		assert.Equal(t, f.Token(), tok)
	})

	t.Run("Refresh Without Token Is No Session", func(t *testing.T) {
		resp := &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"user":{"id":"u1"}}`)),
		}
		api := services.NewAPIService("http://example.invalid/api", &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)})
		c := New(api, nil)

		ok, err := c.RefreshAuth(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, Anonymous, c.State())
	})

	t.Run("Server Error Is Surfaced", func(t *testing.T) {
		c, f, _ := newCoordinator(t)
		f.FailRefresh(http.StatusInternalServerError)

		ok, err := c.RefreshAuth(ctx)
		assert.False(t, ok)
		assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	})
}

func TestSessionExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("Once Per Episode", func(t *testing.T) {
		c, f, api := newCoordinator(t)
		handleCalendar(f)
		_, err := c.Login(ctx, "user@example.com", tu.GoodPassword)
		require.NoError(t, err)

		var (
			mu     sync.Mutex
			events []ExpiredEvent
		)
		c.Subscribe(func(ev ExpiredEvent) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, ev)
		})

		f.ExpireToken()
		f.EndSession()
		f.SetRefreshDelay(50 * time.Millisecond)

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = services.NewCalendarClient(api).Day(ctx, mustDate("2025-06-04"))
			}()
		}
		wg.Wait()

		// A later request in the same episode must not emit again.
		_, err = services.NewCalendarClient(api).Day(ctx, mustDate("2025-06-04"))
		require.ErrorIs(t, err, shared.ErrUnauthorized)

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, events, 1)
		assert.Equal(t, "user@example.com", events[0].User.Email)
		assert.ErrorIs(t, events[0].Err, shared.ErrUnauthorized)
		assert.Equal(t, Anonymous, c.State())
		assert.Nil(t, c.Snapshot().User)
	})

	t.Run("New Episode After Login", func(t *testing.T) {
		c, f, api := newCoordinator(t)
		handleCalendar(f)

		var events atomic.Int32
		unsubscribe := c.Subscribe(func(ExpiredEvent) { events.Add(1) })

		for range 2 {
			_, err := c.Login(ctx, "user@example.com", tu.GoodPassword)
			require.NoError(t, err)
			f.ExpireToken()
			f.EndSession()
			_, _ = services.NewCalendarClient(api).Day(ctx, mustDate("2025-06-04"))
		}
		assert.EqualValues(t, 2, events.Load())

		unsubscribe()
		_, err := c.Login(ctx, "user@example.com", tu.GoodPassword)
		require.NoError(t, err)
		f.ExpireToken()
		f.EndSession()
		_, _ = services.NewCalendarClient(api).Day(ctx, mustDate("2025-06-04"))
		assert.EqualValues(t, 2, events.Load())
	})

	t.Run("Refresh Success Keeps Session", func(t *testing.T) {
		c, f, api := newCoordinator(t)
		handleCalendar(f)
		_, err := c.Login(ctx, "user@example.com", tu.GoodPassword)
		require.NoError(t, err)

		var events atomic.Int32
		c.Subscribe(func(ExpiredEvent) { events.Add(1) })

		f.ExpireToken()
		_, err = services.NewCalendarClient(api).Day(ctx, mustDate("2025-06-04"))
		require.NoError(t, err)
		assert.Zero(t, events.Load())
		assert.Equal(t, Authenticated, c.State())
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "two-factor-pending", TwoFactorPending.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func mustDate(s string) models.Date { return models.MustParseDate(s) }
