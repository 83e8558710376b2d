package cache

import "errors"

// ErrLoaderRequired is returned when a lookup is made without a loader.
var ErrLoaderRequired = errors.New("cache: loader required")
