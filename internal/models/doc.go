// Package models defines the entities exchanged with the revision API.
//
// Data Transfer Objects, all server-owned and never constructed client-side except in tests:
//   - [User] : Account identity returned by login, two-factor verification and refresh
//   - [Task] : A completed piece of work owned by one user
//   - [Revision] : A spaced-repetition reminder attached to a task, ordered by scheduled date
//   - [DayView] : Tasks completed on a date plus the revisions due on it
//
// [Date] is a civil calendar date (no time of day, no zone) serialized as YYYY-MM-DD.
// [RevisionStatus] enumerates the lifecycle states of a revision.
package models
