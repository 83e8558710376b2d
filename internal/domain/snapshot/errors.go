package snapshot

import "errors"

// ErrMalformed is returned when a document is not a dashboard snapshot.
var ErrMalformed = errors.New("malformed snapshot")
