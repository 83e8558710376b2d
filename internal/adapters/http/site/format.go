package site

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// numbers formats scores with the decimal separator of a locale.
type numbers struct {
	p *message.Printer
}

func newNumbers(locale string) (numbers, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return numbers{}, fmt.Errorf("%w: %q: %w", ErrInvalidLocale, locale, err)
	}
	return numbers{p: message.NewPrinter(tag)}, nil
}

// Num formats v with one decimal.
func (n numbers) Num(v float64) string {
	return n.p.Sprintf("%.1f", v)
}

// Signed formats v with one decimal and an explicit sign. The sign is taken
// after rounding, so gaps that round to zero read "+0,0".
func (n numbers) Signed(v float64) string {
	r := math.Round(v*10) / 10
	if r < 0 {
		return "-" + n.Num(-r)
	}
	return "+" + n.Num(math.Abs(r))
}
