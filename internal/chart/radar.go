package chart

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Radar renders two series as overlaid polygons on a radial grid, one axis
// per label. Axes start at twelve o'clock and run clockwise.
func Radar(width, height int, seriesA, seriesB []float64, labels []string, opts RadarOpts) (template.HTML, error) {
	if len(labels) == 0 {
		return "", ErrNoData
	}
	if len(seriesA) != len(labels) || (len(seriesB) > 0 && len(seriesB) != len(labels)) {
		return "", ErrLengthMismatch
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	maxVal := opts.Max
	if maxVal <= 0 {
		maxVal = DefaultRadarMax
	}
	rings := opts.Rings
	if rings <= 0 {
		rings = DefaultRadarRings
	}
	format := formatter(opts.Format)
	axisColor := fallback(opts.AxisColor, colorAxis)
	gridColor := fallback(opts.GridColor, colorGrid)
	colorA := fallback(opts.ColorA, ColorRegion)
	colorB := fallback(opts.ColorB, ColorReference)
	labelA := fallback(opts.LabelA, "Series A")
	labelB := fallback(opts.LabelB, "Series B")

	cx := float64(width) / 2
	cy := float64(height)/2 + 8
	// Leave room for axis labels around the outer ring.
	radius := math.Min(float64(width), float64(height))/2 - 48
	if radius <= 0 {
		return "", ErrViewport
	}

	n := len(labels)
	point := func(i int, value float64) (float64, float64) {
		if value < 0 {
			value = 0
		}
		if value > maxVal {
			value = maxVal
		}
		angle := -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
		r := radius * value / maxVal
		return cx + r*math.Cos(angle), cy + r*math.Sin(angle)
	}
	polygon := func(values []float64) string {
		pts := make([]string, len(values))
		for i, v := range values {
			x, y := point(i, v)
			pts[i] = fmt.Sprintf("%.2f,%.2f", x, y)
		}
		return strings.Join(pts, " ")
	}

	titleID := makeID(opts.Title, "radar-title")
	descID := makeID(opts.Title, "radar-desc")

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID))
	b.WriteString(fmt.Sprintf("<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Radar chart"))))
	b.WriteString(fmt.Sprintf("<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Radial comparison"))))

	// Rings
	for ring := 1; ring <= rings; ring++ {
		value := maxVal * float64(ring) / float64(rings)
		all := make([]float64, n)
		for i := range all {
			all[i] = value
		}
		b.WriteString(fmt.Sprintf("<polygon points=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"0.5\" aria-hidden=\"true\"></polygon>", polygon(all), gridColor))
		_, y := point(0, value)
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"9\" text-anchor=\"start\">%s</text>", cx+3, y+3, axisColor, template.HTMLEscapeString(format(value))))
	}

	// Spokes and labels
	for i, label := range labels {
		x, y := point(i, maxVal)
		b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" aria-hidden=\"true\"></line>", cx, cy, x, y, gridColor))
		anchor := "middle"
		switch {
		case x > cx+1:
			anchor = "start"
		case x < cx-1:
			anchor = "end"
		}
		lx := cx + (x-cx)*1.08
		ly := cy + (y-cy)*1.08
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"%s\">%s</text>", lx, ly+3, axisColor, anchor, template.HTMLEscapeString(label)))
	}

	if len(seriesB) > 0 {
		b.WriteString(fmt.Sprintf("<polygon points=\"%s\" fill=\"%s\" fill-opacity=\"0.15\" stroke=\"%s\" stroke-width=\"2\" aria-label=\"%s\"></polygon>", polygon(seriesB), colorB, colorB, template.HTMLEscapeString(labelB)))
	}
	b.WriteString(fmt.Sprintf("<polygon points=\"%s\" fill=\"%s\" fill-opacity=\"0.25\" stroke=\"%s\" stroke-width=\"2\" aria-label=\"%s\"></polygon>", polygon(seriesA), colorA, colorA, template.HTMLEscapeString(labelA)))

	// Legend
	b.WriteString(fmt.Sprintf("<rect x=\"8\" y=\"8\" width=\"10\" height=\"10\" fill=\"%s\"></rect>", colorA))
	b.WriteString(fmt.Sprintf("<text x=\"22\" y=\"17\" fill=\"%s\" font-size=\"10\">%s</text>", axisColor, template.HTMLEscapeString(labelA)))
	if len(seriesB) > 0 {
		b.WriteString(fmt.Sprintf("<rect x=\"8\" y=\"24\" width=\"10\" height=\"10\" fill=\"%s\"></rect>", colorB))
		b.WriteString(fmt.Sprintf("<text x=\"22\" y=\"33\" fill=\"%s\" font-size=\"10\">%s</text>", axisColor, template.HTMLEscapeString(labelB)))
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil //nolint:gosec // every interpolated label is escaped
}
