package service

import "errors"

// Sentinel kinds for engine errors. Not-found conditions surface as
// repository.ErrNotFound; storage failures propagate unchanged.
var (
	ErrInvalidArgument = errors.New("invalid argument")
)
