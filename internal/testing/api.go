package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

const (
	RefreshCookie = "refresh_token"
	GoodPassword  = "correct-horse"
	TwoFactorUser = "otp@example.com"
	GoodOTP       = "123456"
)

// FakeAPI imitates the task service's auth behavior behind an httptest server.
//
// One access token is valid at a time. Logging in sets a refresh cookie;
// refreshing with that cookie rotates the access token. Routes outside /auth/
// require the current token and are served by handlers registered with [FakeAPI.Handle].
type FakeAPI struct {
	Server *httptest.Server

	RefreshCalls atomic.Int32
	LogoutCalls  atomic.Int32

	mu            sync.Mutex
	token         string
	session       string
	refreshDelay  time.Duration
	refreshStatus int
	logoutBlock   chan struct{}
	routes        map[string]http.HandlerFunc
	hits          map[string]int
}

// NewFakeAPI starts the server and closes it when t finishes.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	f := &FakeAPI{routes: map[string]http.HandlerFunc{}, hits: map[string]int{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(func() {
		f.ReleaseLogout()
		f.Server.Close()
	})
	return f
}

// URL is the API base, including the /api prefix.
func (f *FakeAPI) URL() string { return f.Server.URL + "/api" }

// Handle registers a handler for an authenticated route such as "GET /calendar".
func (f *FakeAPI) Handle(route string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = h
}

// Hits returns how many authorized requests reached route.
func (f *FakeAPI) Hits(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

// Token is the currently valid access token.
func (f *FakeAPI) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// StartSession issues a fresh access token and refresh cookie, returning the
// cookie a client would hold.
func (f *FakeAPI) StartSession() *http.Cookie {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = uuid.NewString()
	f.token = uuid.NewString()
	return &http.Cookie{Name: RefreshCookie, Value: f.session, Path: "/"}
}

// ExpireToken invalidates the current access token without telling clients.
func (f *FakeAPI) ExpireToken() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = uuid.NewString()
}

// EndSession invalidates the refresh cookie, so the next refresh fails.
func (f *FakeAPI) EndSession() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = ""
}

// SetRefreshDelay holds each refresh for d, widening the window for concurrent callers.
func (f *FakeAPI) SetRefreshDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshDelay = d
}

// FailRefresh makes refresh answer with status until reset with 0.
func (f *FakeAPI) FailRefresh(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshStatus = status
}

// BlockLogout makes /auth/logout hang until [FakeAPI.ReleaseLogout] or the server closes.
func (f *FakeAPI) BlockLogout() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutBlock = make(chan struct{})
}

// ReleaseLogout lets blocked logout calls finish.
func (f *FakeAPI) ReleaseLogout() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logoutBlock != nil {
		close(f.logoutBlock)
		f.logoutBlock = nil
	}
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	route := r.Method + " " + path

	switch route {
	case "POST /auth/login":
		f.login(w, r)
	case "POST /auth/verify-otp":
		f.verifyOTP(w, r)
	case "POST /auth/refresh":
		f.refresh(w, r)
	case "POST /auth/logout":
		f.logout(w)
	case "POST /auth/signup", "POST /auth/forgot-password", "POST /auth/verify-reset-token",
		"POST /auth/reset-password", "POST /auth/verify-email":
		f.message(w, r, path)
	default:
		f.authorized(w, r, route)
	}
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var body struct{ Email, Password string }
	_ = json.NewDecoder(r.Body).Decode(&body)

	switch {
	case body.Password != GoodPassword:
		WriteJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid email or password"})
	case body.Email == TwoFactorUser:
		WriteJSON(w, http.StatusOK, map[string]any{"success": true, "requiresTwoFactor": true})
	default:
		f.grant(w, body.Email)
	}
}

func (f *FakeAPI) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var body struct{ OTP string }
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.OTP != GoodOTP {
		WriteJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid OTP"})
		return
	}
	f.grant(w, TwoFactorUser)
}

func (f *FakeAPI) grant(w http.ResponseWriter, email string) {
	c := f.StartSession()
	http.SetCookie(w, c)
	WriteJSON(w, http.StatusOK, map[string]any{
		"accessToken": f.Token(),
		"user":        map[string]any{"id": "u1", "email": email, "twoFactorEnabled": email == TwoFactorUser},
	})
}

func (f *FakeAPI) refresh(w http.ResponseWriter, r *http.Request) {
	f.RefreshCalls.Add(1)

	f.mu.Lock()
	delay, status, session := f.refreshDelay, f.refreshStatus, f.session
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if r.Header.Get("Authorization") != "" {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"message": "refresh must not carry a bearer token"})
		return
	}
	if status != 0 {
		WriteJSON(w, status, map[string]any{"message": "refresh failed"})
		return
	}

	c, err := r.Cookie(RefreshCookie)
	if err != nil || session == "" || c.Value != session {
		WriteJSON(w, http.StatusUnauthorized, map[string]any{"message": "No refresh token"})
		return
	}

	f.ExpireToken()
	WriteJSON(w, http.StatusOK, map[string]any{
		"accessToken": f.Token(),
		"user":        map[string]any{"id": "u1", "email": "user@example.com"},
	})
}

func (f *FakeAPI) logout(w http.ResponseWriter) {
	f.LogoutCalls.Add(1)

	f.mu.Lock()
	block := f.logoutBlock
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.EndSession()
	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: "", Path: "/", MaxAge: -1})
	WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (f *FakeAPI) message(w http.ResponseWriter, r *http.Request, path string) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	if body["token"] == "bad" || body["email"] == "taken@example.com" {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "rejected by " + path})
		return
	}
	if path == "/auth/verify-email" && body["token"] == "used" {
		WriteJSON(w, http.StatusOK, map[string]any{"success": false, "error": "Token already used"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "ok"})
}

func (f *FakeAPI) authorized(w http.ResponseWriter, r *http.Request, route string) {
	f.mu.Lock()
	valid := f.token != "" && r.Header.Get("Authorization") == "Bearer "+f.token
	h := f.routes[route]
	if valid {
		f.hits[route]++
	}
	f.mu.Unlock()

	if !valid {
		WriteJSON(w, http.StatusUnauthorized, map[string]any{"message": "Token expired"})
		return
	}
	if h == nil {
		WriteJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
		return
	}
	h(w, r)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Envelope wraps data the way the service does for resource endpoints.
func Envelope(data any) map[string]any {
	return map[string]any{"success": true, "data": data}
}
