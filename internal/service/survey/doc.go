// Package survey implements survey lifecycle management and response intake.
//
// A survey is created Active, can have its include/exclude audience
// references updated while Active, and is closed exactly once. Closing is
// irreversible: a closed survey is permanently excluded from reminder
// consideration and rejects new responses.
//
// Response intake enforces "at most one response per (survey, responder)".
// A repeated submit is not an error; it returns the existing response so
// double-clicks are safe.
//
// Repository implementations live in repository/postgres/.
package survey
