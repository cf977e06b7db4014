package user

import "errors"

// Sentinel errors for the user service layer.
var (
	ErrNotFound = errors.New("user not found")
)
