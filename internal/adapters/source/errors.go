package source

import "errors"

var (
	// ErrDataUnavailable is returned when the snapshot cannot be obtained:
	// transport failure, non-2xx status, unreadable file or malformed body.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrInvalidLocation is returned when a source is built without a usable location.
	ErrInvalidLocation = errors.New("invalid snapshot location")
)
