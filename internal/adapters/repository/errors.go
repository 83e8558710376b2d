package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotLoaded    = errors.New("snapshot not loaded")
	ErrInvalidEntry = errors.New("invalid snapshot entry")
)
