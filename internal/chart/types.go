// Package chart renders the dashboard charts as inline SVG.
package chart

// Series is one named line. A nil value is a gap in the line.
type Series struct {
	Name   string
	Color  string
	Values []*float64
}

// RadarOpts customises the radar renderer.
type RadarOpts struct {
	Title       string
	Description string
	LabelA      string
	LabelB      string
	ColorA      string
	ColorB      string
	AxisColor   string
	GridColor   string
	// Max is the value at the outer ring. Values above it are clipped.
	Max    float64
	Rings  int
	Format func(float64) string
}

// BarOpts customises the diverging bar renderer.
type BarOpts struct {
	Title         string
	Description   string
	PositiveColor string
	NegativeColor string
	AxisColor     string
	GridColor     string
	// LabelWidth is the space reserved left of the bars for category labels.
	LabelWidth float64
	Padding    float64
	Format     func(float64) string
}

// LineOpts customises the multi-series line renderer.
type LineOpts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
	ShowDots    bool
	Format      func(float64) string
}

// Defaults for the dashboard charts.
const (
	DefaultWidth      = 720
	DefaultHeight     = 320
	DefaultPadding    = 32.0
	DefaultTicks      = 5
	DefaultRadarMax   = 100.0
	DefaultRadarRings = 5
	DefaultLabelWidth = 180.0
	DefaultBarHeight  = 22
)

// Presentation colours shared with the derived views.
const (
	ColorRegion    = "#10b981"
	ColorReference = "#6366f1"
	ColorPositive  = "#10b981"
	ColorNegative  = "#ef4444"
	colorAxis      = "#475569"
	colorGrid      = "#cbd5e1"
)

// Palette is used for line series without a colour.
var Palette = []string{"#10b981", "#6366f1", "#f59e0b", "#ef4444", "#0ea5e9", "#8b5cf6", "#14b8a6"}
