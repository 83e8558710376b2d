package chart

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrNoData is returned when a chart has nothing to draw.
	ErrNoData = errors.New("chart: no data")
	// ErrLengthMismatch is returned when series and labels disagree in length.
	ErrLengthMismatch = errors.New("chart: series length must match labels")
	// ErrViewport is returned when padding leaves no room to draw.
	ErrViewport = errors.New("chart: viewport too small")
)

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return fmt.Sprintf("%s-%s", cleaned, suffix)
}

func formatValue(v float64) string {
	if almostEqual(v, math.Round(v)) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func formatter(f func(float64) string) func(float64) string {
	if f == nil {
		return formatValue
	}
	return f
}

// niceBounds widens [lo, hi] to multiples of step so tick labels are round.
func niceBounds(lo, hi float64, ticks int) (float64, float64) {
	if almostEqual(lo, hi) {
		hi = lo + 1
	}
	raw := (hi - lo) / float64(ticks)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := mag
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if m*mag >= raw {
			step = m * mag
			break
		}
	}
	return math.Floor(lo/step) * step, math.Ceil(hi/step) * step
}
