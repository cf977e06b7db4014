// Package httputil provides shared HTTP response utilities for the ops API
// handlers.
//
// Handlers use these helpers instead of writing raw http.ResponseWriter
// calls, keeping JSON formatting and error envelopes consistent across
// endpoints.
package httputil
