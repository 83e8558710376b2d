package chart

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// GapBars renders one horizontal bar per label growing left or right of a
// zero line. Non-negative values use PositiveColor.
func GapBars(width int, values []float64, labels []string, opts BarOpts) (template.HTML, error) {
	if len(values) == 0 {
		return "", ErrNoData
	}
	if len(values) != len(labels) {
		return "", ErrLengthMismatch
	}
	if width <= 0 {
		width = DefaultWidth
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	labelWidth := opts.LabelWidth
	if labelWidth <= 0 {
		labelWidth = DefaultLabelWidth
	}
	format := formatter(opts.Format)
	axisColor := fallback(opts.AxisColor, colorAxis)
	gridColor := fallback(opts.GridColor, colorGrid)
	posColor := fallback(opts.PositiveColor, ColorPositive)
	negColor := fallback(opts.NegativeColor, ColorNegative)

	height := int(2*padding) + len(values)*DefaultBarHeight
	chartLeft := padding + labelWidth
	chartWidth := float64(width) - chartLeft - padding
	if chartWidth <= 0 {
		return "", ErrViewport
	}

	// Symmetric domain keeps the zero line centred.
	extent := 0.0
	for _, v := range values {
		extent = math.Max(extent, math.Abs(v))
	}
	_, extent = niceBounds(0, extent, DefaultTicks)
	scale := chartWidth / (2 * extent)
	zeroX := chartLeft + chartWidth/2

	titleID := makeID(opts.Title, "bars-title")
	descID := makeID(opts.Title, "bars-desc")

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID))
	b.WriteString(fmt.Sprintf("<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Gap chart"))))
	b.WriteString(fmt.Sprintf("<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Differences around zero"))))

	top := padding
	bottom := padding + float64(len(values)*DefaultBarHeight)
	for _, tick := range []float64{-extent, -extent / 2, 0, extent / 2, extent} {
		x := zeroX + tick*scale
		b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"2,4\" aria-hidden=\"true\"></line>", x, top, x, bottom, gridColor))
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", x, bottom+14, axisColor, template.HTMLEscapeString(format(tick))))
	}

	for i, v := range values {
		y := top + float64(i*DefaultBarHeight)
		w := math.Abs(v) * scale
		x := zeroX
		color := posColor
		if v < 0 {
			x = zeroX - w
			color = negColor
		}
		label := template.HTMLEscapeString(labels[i])
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"11\" text-anchor=\"end\">%s</text>", chartLeft-8, y+DefaultBarHeight/2+4, axisColor, label))
		b.WriteString(fmt.Sprintf("<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%d\" rx=\"2\" fill=\"%s\" aria-label=\"%s %s\"></rect>", x, y+3, w, DefaultBarHeight-6, color, label, template.HTMLEscapeString(format(v))))
	}

	b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"1\"></line>", zeroX, top, zeroX, bottom, axisColor))
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil //nolint:gosec // every interpolated label is escaped
}
