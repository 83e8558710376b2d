package site

import "errors"

// Error constants
var (
	ErrInvalidLocale = errors.New("invalid site locale")
	ErrRender        = errors.New("site render failed")
)
