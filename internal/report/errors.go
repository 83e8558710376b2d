package report

import "errors"

var (
	// ErrUnknownFormat is returned for an output format other than table, json or yaml.
	ErrUnknownFormat = errors.New("unknown output format")
	// ErrUnknownSection is returned when a table section does not exist.
	ErrUnknownSection = errors.New("unknown section")
	// ErrRemote is returned when the service answers with an error body.
	ErrRemote = errors.New("service error")
)
