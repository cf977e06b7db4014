// Package postgres implements the service repository interfaces against
// PostgreSQL using database/sql and lib/pq.
//
// Uniqueness constraints (one sent record and one response per survey and
// recipient, one membership per list and user) live in the schema; this
// package translates constraint violations into the sentinel errors the
// service layers expect.
package postgres
