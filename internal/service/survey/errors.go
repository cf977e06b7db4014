package survey

import "errors"

// Sentinel errors for the survey service layer.
var (
	ErrNotFound          = errors.New("survey not found")
	ErrSurveyClosed      = errors.New("survey is closed")
	ErrEmptyAnswer       = errors.New("answer text is empty")
	ErrDuplicateResponse = errors.New("responder already answered this survey")
)
