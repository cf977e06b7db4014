// Package ledger implements the delivery ledger: the record of which
// recipients were sent a survey's initial message (with the thread handle
// needed to reply in-thread) and which recipients have responded.
//
// The unanswered set is always derived from these two facts, never stored.
// The (survey, receiver) uniqueness constraint on sent records is the
// authoritative resolution for concurrent send races: the losing writer
// observes ErrDuplicateSend and treats it as success-equivalent.
package ledger
