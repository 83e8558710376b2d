package derive

// Option configures a Transformer.
type Option func(*Transformer)

// WithFallbackReference sets the reference used for indicators with no
// comparator at indicator or pillar level.
func WithFallbackReference(v float64) Option {
	return func(t *Transformer) {
		t.fallbackReference = v
	}
}

// WithIndicatorReference compares each indicator against the reference
// region's value for the same indicator when it has one.
func WithIndicatorReference(enabled bool) Option {
	return func(t *Transformer) {
		t.indicatorReference = enabled
	}
}
