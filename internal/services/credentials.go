package services

import (
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// CredentialStore holds the in-memory access token.
//
// Every Set and Clear bumps a generation counter. Requests remember the
// generation they were sent with, which lets the [RefreshCoordinator] tell
// whether a refresh already happened since.
type CredentialStore struct {
	mu    sync.RWMutex
	token *oauth2.Token
	gen   uint64
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

// Set installs accessToken and returns the new generation.
func (s *CredentialStore) Set(accessToken string) uint64 {
	tok := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer", Expiry: tokenExpiry(accessToken)}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tok
	s.gen++
	return s.gen
}

// SetIf installs accessToken only while the store is still at generation gen.
// It reports whether the token was installed, with the generation after the call.
func (s *CredentialStore) SetIf(gen uint64, accessToken string) (uint64, bool) {
	tok := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer", Expiry: tokenExpiry(accessToken)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return s.gen, false
	}
	s.token = tok
	s.gen++
	return s.gen, true
}

// ClearIf drops the token only while the store is still at generation gen.
func (s *CredentialStore) ClearIf(gen uint64) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return s.gen, false
	}
	s.token = nil
	s.gen++
	return s.gen, true
}

// Clear drops the token and returns the new generation.
func (s *CredentialStore) Clear() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	s.gen++
	return s.gen
}

// Current returns the access token ("" when absent) with its generation.
func (s *CredentialStore) Current() (string, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return "", s.gen
	}
	return s.token.AccessToken, s.gen
}

func (s *CredentialStore) Present() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != nil
}

// Expiry is the token's exp claim, or the zero time when unknown or absent.
func (s *CredentialStore) Expiry() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return time.Time{}
	}
	return s.token.Expiry
}

// authorize sets the bearer header from accessToken when it is non-empty.
func authorize(req *http.Request, accessToken string) {
	if accessToken == "" {
		return
	}
	tok := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	tok.SetAuthHeader(req)
}

// tokenExpiry reads the exp claim of a JWT without verifying it. The server
// enforces expiry; the value is only used for display.
func tokenExpiry(accessToken string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
