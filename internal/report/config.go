package report

import "time"

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Config holds the report tool settings.
type Config struct {
	// Source is either a service base URL (http or https) or the path of a
	// snapshot document on disk.
	Source string
	// Format is one of FormatTable, FormatJSON, FormatYAML.
	Format string
	// Section limits table output to one view; empty prints all of them.
	Section string
	// FallbackReference is used when deriving from a local document.
	FallbackReference float64
	// IndicatorReference prefers the reference region's indicator values.
	IndicatorReference bool
	// Region and Reference label the compared regions in table headers.
	Region    string
	Reference string
	Timeout   time.Duration
}
