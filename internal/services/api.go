// Request pipeline for the task service API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/revu/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "http://localhost:8080/api"
	authPrefix     = "/auth/"
	refreshPath    = "/auth/refresh"
	requestIDKey   = "X-Request-ID"
)

// APIService sends requests to the task service, attaching the current
// credential and recovering from an expired one with a single refresh.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	store      *CredentialStore
	refresher  *RefreshCoordinator
	limiter    *rate.Limiter
	logger     *log.Logger
}

// Option configures an [APIService].
type Option func(*APIService)

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(a *APIService) { a.logger = l }
}

// WithRateLimit limits outbound attempts to limit per second. Zero disables limiting.
func WithRateLimit(limit float64, burst int) Option {
	return func(a *APIService) {
		if limit <= 0 {
			a.limiter = nil
			return
		}
		a.limiter = rate.NewLimiter(rate.Limit(limit), max(burst, 1))
	}
}

// WithCredentialStore shares an existing store instead of creating one.
func WithCredentialStore(s *CredentialStore) Option {
	return func(a *APIService) { a.store = s }
}

// NewAPIService creates a new API service for baseURL.
func NewAPIService(baseURL string, client *http.Client, opts ...Option) *APIService {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	a := &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		store:      NewCredentialStore(),
		logger:     shared.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.refresher = NewRefreshCoordinator(a.store, a.postRefresh, a.logger)
	return a
}

// Credentials exposes the store so the session layer can install and clear tokens.
func (a *APIService) Credentials() *CredentialStore { return a.store }

// Refresher exposes the coordinator so the session layer can register hooks.
func (a *APIService) Refresher() *RefreshCoordinator { return a.refresher }

// BaseURL returns the API root, used to scope cookies.
func (a *APIService) BaseURL() string { return a.baseURL }

// APIResponse is a decoded response.
//
// Data holds the payload with the server's {success, data} envelope removed,
// or the raw body when the response was not enveloped.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Data       json.RawMessage
	RequestID  string
}

// Decode unmarshals the payload into v.
func (r *APIResponse) Decode(v any) error {
	if len(r.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("%w: decode response: %w", shared.ErrAPIRequest, err)
	}
	return nil
}

// FieldError is one entry of a validation error response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
	Details    []FieldError
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	if len(e.Details) == 0 {
		return msg
	}
	parts := make([]string, len(e.Details))
	for i, d := range e.Details {
		parts[i] = d.Field + ": " + d.Message
	}
	return msg + ". Details: " + strings.Join(parts, ", ")
}

// Unwrap maps the status code onto the shared sentinel errors.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return shared.ErrUnauthorized
	case e.StatusCode == http.StatusBadRequest, e.StatusCode == http.StatusUnprocessableEntity:
		return shared.ErrValidation
	case e.StatusCode == http.StatusNotFound:
		return shared.ErrNotFound
	case e.StatusCode >= 500:
		return shared.ErrServiceUnavailable
	default:
		return shared.ErrAPIRequest
	}
}

// IsStatus reports whether err is an [APIError] with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// ErrorMessage returns the server's message for err, or fallback when err
// carries none.
func ErrorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Message != http.StatusText(apiErr.StatusCode) {
		return apiErr.Message
	}
	return fallback
}

type requestOptions struct {
	query     url.Values
	noRefresh bool
}

// RequestOption adjusts a single call to [APIService.Send].
type RequestOption func(*requestOptions)

// WithQuery adds a query parameter.
func WithQuery(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.query == nil {
			o.query = url.Values{}
		}
		o.query.Add(key, value)
	}
}

// WithoutRefresh returns a 401 as-is instead of refreshing.
func WithoutRefresh() RequestOption {
	return func(o *requestOptions) { o.noRefresh = true }
}

// Send performs a request against path, relative to the base URL.
//
// A 401 on a non-auth path is retried once after the [RefreshCoordinator]
// produces a newer credential. If the refresh fails, the original
// authorization error is returned joined with the refresh failure.
func (a *APIService) Send(ctx context.Context, method, path string, body any, opts ...RequestOption) (*APIResponse, error) {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	token, gen := a.store.Current()
	resp, err := a.attempt(ctx, method, path, payload, o.query, token)
	if err == nil {
		return resp, nil
	}

	if o.noRefresh || isAuthPath(path) || !IsStatus(err, http.StatusUnauthorized) {
		return nil, err
	}

	a.logger.Debug("credential rejected, refreshing", "method", method, "path", path, "generation", gen)
	fresh, rerr := a.refresher.Refresh(ctx, gen)
	if rerr != nil {
		return nil, fmt.Errorf("%w: %w", err, rerr)
	}

	return a.attempt(ctx, method, path, payload, o.query, fresh)
}

// attempt makes exactly one network call.
func (a *APIService) attempt(ctx context.Context, method, path string, payload []byte, query url.Values, token string) (*APIResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrNetwork, err)
		}
	}

	fullURL := a.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", shared.ErrAPIRequest, err)
	}

	requestID := shared.GenerateID()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDKey, requestID)
	authorize(req, token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", shared.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", shared.ErrNetwork, err)
	}

	a.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		Data:       unwrapEnvelope(body),
		RequestID:  requestID,
	}, nil
}

// postRefresh calls the refresh endpoint. It carries no bearer header and is
// never retried; the refresh cookie in the client's jar authenticates it.
func (a *APIService) postRefresh(ctx context.Context) (*AuthResponse, error) {
	resp, err := a.attempt(ctx, http.MethodPost, refreshPath, nil, nil, "")
	if err != nil {
		return nil, err
	}

	var out AuthResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &APIError{StatusCode: http.StatusUnauthorized, Message: "refresh response carried no access token"}
	}
	return &out, nil
}

func isAuthPath(path string) bool {
	return strings.HasPrefix(path, authPrefix)
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", shared.ErrInvalidInput, err)
	}
	return data, nil
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func unwrapEnvelope(body []byte) json.RawMessage {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Success != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		return env.Data
	}
	return body
}

type errorBody struct {
	Message string       `json:"message"`
	Error   string       `json:"error"`
	Details []FieldError `json:"details"`
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.Details = eb.Details
		switch {
		case eb.Message != "":
			apiErr.Message = eb.Message
		case eb.Error != "":
			apiErr.Message = eb.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
