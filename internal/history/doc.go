// Package history persists check records in an embedded SQLite database.
//
// Records are written when a check is submitted and updated in place as it
// completes or fails. Updates are partial: fields left empty in the update
// keep their stored values, so a completion never erases the submitted
// content or the original timestamp.
package history
