package ledger

import "errors"

// Sentinel errors for the ledger service layer.
var (
	ErrDuplicateSend = errors.New("recipient already has a sent record for this survey")
)
