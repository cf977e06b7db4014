package audience

import "errors"

// Sentinel errors for the audience service layer.
var (
	ErrNotFound        = errors.New("audience list not found")
	ErrDuplicateName   = errors.New("audience list name already exists")
	ErrDuplicateMember = errors.New("user is already a member of the list")
	ErrListInUse       = errors.New("audience list is referenced by a survey")
)
