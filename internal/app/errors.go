package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted  = errors.New("service not started")
	ErrNoSource    = errors.New("no snapshot source configured")
	ErrUnknownView = errors.New("unknown view")
)
