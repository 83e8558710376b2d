package chart

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Lines renders several series over shared labels. A nil value breaks the
// line instead of being drawn as zero.
func Lines(width, height int, series []Series, labels []string, opts LineOpts) (template.HTML, error) {
	if len(series) == 0 || len(labels) == 0 {
		return "", ErrNoData
	}
	for _, s := range series {
		if len(s.Values) != len(labels) {
			return "", ErrLengthMismatch
		}
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	tickCount := opts.TickCount
	if tickCount <= 0 {
		tickCount = DefaultTicks
	}
	format := formatter(opts.Format)
	axisColor := fallback(opts.AxisColor, colorAxis)
	gridColor := fallback(opts.GridColor, colorGrid)

	chartWidth := float64(width) - 2*padding
	chartHeight := float64(height) - 2*padding - 16
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", ErrViewport
	}

	minVal, maxVal, ok := seriesBounds(series)
	if !ok {
		return "", ErrNoData
	}
	minVal, maxVal = niceBounds(minVal, maxVal, tickCount)
	scale := chartHeight / (maxVal - minVal)
	top := padding + 16

	xAt := func(i int) float64 {
		if len(labels) == 1 {
			return padding + chartWidth/2
		}
		return padding + float64(i)*chartWidth/float64(len(labels)-1)
	}
	yAt := func(v float64) float64 {
		return top + chartHeight - (v-minVal)*scale
	}

	titleID := makeID(opts.Title, "lines-title")
	descID := makeID(opts.Title, "lines-desc")

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID))
	b.WriteString(fmt.Sprintf("<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Line chart"))))
	b.WriteString(fmt.Sprintf("<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Trend data"))))

	// Grid lines and ticks
	for i := 0; i <= tickCount; i++ {
		value := minVal + (maxVal-minVal)*float64(i)/float64(tickCount)
		y := yAt(value)
		b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"2,4\" aria-hidden=\"true\"></line>", padding, y, padding+chartWidth, y, gridColor))
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>", padding-6, y+4, axisColor, template.HTMLEscapeString(format(value))))
	}

	for i, label := range labels {
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", xAt(i), top+chartHeight+14, axisColor, template.HTMLEscapeString(label)))
	}

	legendX := padding
	for si, s := range series {
		color := s.Color
		if color == "" {
			color = Palette[si%len(Palette)]
		}
		name := template.HTMLEscapeString(fallback(s.Name, fmt.Sprintf("Series %d", si+1)))

		var path strings.Builder
		pen := false
		for i, v := range s.Values {
			if v == nil {
				pen = false
				continue
			}
			cmd := "L"
			if !pen {
				cmd = "M"
			}
			if path.Len() > 0 {
				path.WriteByte(' ')
			}
			path.WriteString(fmt.Sprintf("%s%.2f %.2f", cmd, xAt(i), yAt(*v)))
			pen = true
		}
		if path.Len() > 0 {
			b.WriteString(fmt.Sprintf("<path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"2\" stroke-linejoin=\"round\" stroke-linecap=\"round\" aria-label=\"%s\"></path>", path.String(), color, name))
		}
		if opts.ShowDots {
			for i, v := range s.Values {
				if v != nil {
					b.WriteString(fmt.Sprintf("<circle cx=\"%.2f\" cy=\"%.2f\" r=\"3\" fill=\"%s\"></circle>", xAt(i), yAt(*v), color))
				}
			}
		}

		b.WriteString(fmt.Sprintf("<rect x=\"%.2f\" y=\"%.2f\" width=\"10\" height=\"10\" fill=\"%s\"></rect>", legendX, padding-8, color))
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"start\">%s</text>", legendX+14, padding+1, axisColor, name))
		legendX += 14 + math.Max(60, float64(len(s.Name))*6)
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil //nolint:gosec // every interpolated label is escaped
}

func seriesBounds(series []Series) (float64, float64, bool) {
	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			if v == nil {
				continue
			}
			minVal = math.Min(minVal, *v)
			maxVal = math.Max(maxVal, *v)
		}
	}
	if math.IsInf(minVal, 1) {
		return 0, 0, false
	}
	return minVal, maxVal, true
}
