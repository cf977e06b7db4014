// Package user implements the workspace user directory.
//
// Users are mirrored from Slack by the roster sync; this package owns
// lookups, upserts, and the admin flag that gates survey-management
// commands.
package user
