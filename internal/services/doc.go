// Package services is the client's gateway to the task service API.
//
// # Request Pipeline
//
// [APIService.Send] is the single path for outbound calls. It attaches the
// bearer token held by the [CredentialStore], tags every attempt with an
// X-Request-ID, waits on the optional rate limiter and unwraps the server's
// {success, data} envelope.
//
// A 401 on a path outside /auth/ is retried exactly once, after the
// [RefreshCoordinator] produces a newer credential. Auth endpoints, including
// refresh itself, return their failures as-is.
//
// # Refresh Coordinator
//
// Concurrent authorization failures share a single POST /auth/refresh through
// singleflight. Each request remembers the credential generation it was sent
// with; a request that fails after its storm has already been resolved reuses
// the outcome instead of refreshing again.
//
// On failure the store is cleared and [RefreshHooks.OnRefreshFailed] runs once
// per flight; the session layer turns that into the session-expired event.
// A flight whose credential was cleared or replaced while it ran leaves the
// store alone and skips the hooks.
//
// # Endpoint clients
//
//   - [AuthClient]: login, OTP, signup, logout, password reset, email verification
//   - [TasksClient]: create, update, fetch, schedule and revision status
//   - [CalendarClient]: the per-day aggregation
//   - [GoogleClient]: calendar reminders, with [CalendarURL] as a fallback link
//
// # Error Handling
//
// Non-2xx responses are [*APIError] values that unwrap to sentinels from the
// shared package:
//   - [shared.ErrUnauthorized] : 401 or 403
//   - [shared.ErrValidation] : 400 or 422, with field details
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrServiceUnavailable] : 5xx
//   - [shared.ErrNetwork] : transport failures and timeouts
//
// # Cookies
//
// The refresh token lives in an httpOnly cookie. [PersistentJar] keeps it in
// sqlite between runs.
package services
