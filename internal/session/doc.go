// Package session owns who is logged in.
//
// [Coordinator] is a small state machine over [Anonymous], [Authenticating],
// [Authenticated] and [TwoFactorPending]. It installs and clears the access
// token held by the services credential store, and it is the only writer of
// the current user.
//
// # Expiry
//
// When a refresh fails while a user is authenticated, subscribers registered
// with [Coordinator.Subscribe] receive one [ExpiredEvent]. The startup probe
// ([Coordinator.RefreshAuth] before any login) never produces one.
//
// # Logout
//
// [Coordinator.Logout] returns as soon as local state is cleared; the server
// is notified in the background. Call [Coordinator.Wait] before exiting.
package session
