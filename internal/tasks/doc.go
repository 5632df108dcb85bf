// Package tasks holds the client-side day board and the task editor.
//
// # Board
//
// [Board] tracks the selected date and the server's view of it. Results
// that arrive after the user has moved to another date are dropped with
// [shared.ErrStaleResult]. With a [DayCache] configured, a network failure
// falls back to the last good copy, flagged Stale.
//
// # Revision Status
//
// [Board.ChangeRevisionStatus] checks the transition locally, sends it, and
// applies it only after the server accepts. Postponing removes the revision
// from the list before the day is re-fetched.
//
// # Drafts
//
// [Draft] edits a task's title, notes and revision dates before save.
// Validation uses go-playground/validator; [Board.SaveDraft] creates or
// updates the task and reloads the day.
//
// # Progress Reporting
//
// Operations emit [ProgressUpdate] values on an optional channel. Sends never
// block; a full channel drops the update.
package tasks
