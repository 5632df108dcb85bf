// Package repositories implements SQLite persistence for client-side state.
//
// The API server owns tasks and revisions; the client stores only what it
// needs to survive a restart or an outage:
//   - [CookieRepository] : cookies from the API host, chiefly the refresh token
//   - [DayCacheRepository] : the last successful calendar view per date
//
// Tables are created by the embedded migrations in the shared package.
package repositories
