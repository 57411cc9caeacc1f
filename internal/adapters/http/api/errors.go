package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrLimitExceeded = errors.New("limit exceeds maximum")
	ErrQualifyMode   = errors.New("exactly one of participant_ids or auto_qualify_top is required")
)
