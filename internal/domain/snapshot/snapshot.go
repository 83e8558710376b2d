// Package snapshot contains the dashboard snapshot model and its decoder.
//
// A snapshot is produced offline by the index pipeline and is read-only here.
// Mapping order matters for presentation (pillar axes, domain rows), so every
// mapping is kept in document order.
package snapshot

// Scores is a mapping from name or code to score that remembers key order.
type Scores struct {
	keys   []string
	values map[string]float64
}

// NewScores builds Scores whose order is keys. Keys missing from values are
// dropped.
func NewScores(keys []string, values map[string]float64) Scores {
	s := Scores{keys: make([]string, 0, len(keys)), values: make(map[string]float64, len(keys))}
	for _, k := range keys {
		v, ok := values[k]
		if !ok {
			continue
		}
		s.set(k, v)
	}
	return s
}

func (s *Scores) set(key string, value float64) {
	if s.values == nil {
		s.values = make(map[string]float64)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Keys returns the keys in document order.
func (s Scores) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Get returns the score for key.
func (s Scores) Get(key string) (float64, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of entries.
func (s Scores) Len() int { return len(s.keys) }

// Region holds one region's scores at every granularity.
type Region struct {
	Global      float64
	Dominios    Scores
	Pilares     Scores
	Indicadores Scores
	// HasIndicadores is false when the document omitted the indicadores
	// mapping entirely, as older exports did for the reference region.
	HasIndicadores bool
}

// Current is the latest period's scores for the compared regions.
type Current struct {
	Periodo string
	And     Region
	Esp     Region
}

// Series is a named sequence aligned to Evolution.Labels. A nil entry is a
// period without data.
type Series struct {
	Name   string
	Values []*float64
}

// Evolution holds the historical series.
type Evolution struct {
	Labels      []string
	AndGlobal   []*float64
	EspGlobal   []*float64
	AndDominios []Series
}

// Bottleneck identifies one underperforming indicator.
type Bottleneck struct {
	Code  string
	Name  string
	Value float64
}

// Pillar is a pillar label and its indicator codes, in order.
type Pillar struct {
	Label string
	Codes []string
}

// Domain is a domain and its pillars, in order.
type Domain struct {
	Name    string
	Pillars []Pillar
}

// Metadata describes the snapshot and the domain → pillar → indicator hierarchy.
type Metadata struct {
	LastUpdate     string
	IndicatorNames map[string]string
	Structure      []Domain
}

// Snapshot is a complete dashboard document.
type Snapshot struct {
	// Current is nil when the document carries no current section.
	Current     *Current
	Evolution   Evolution
	Bottlenecks []Bottleneck
	Metadata    Metadata
}

// IndicatorName returns the display name of code, or code itself.
func (s *Snapshot) IndicatorName(code string) string {
	if s != nil {
		if name, ok := s.Metadata.IndicatorNames[code]; ok && name != "" {
			return name
		}
	}
	return code
}

// Periodo returns the current period label, falling back to metadata.
func (s *Snapshot) Periodo() string {
	if s == nil {
		return ""
	}
	if s.Current != nil && s.Current.Periodo != "" {
		return s.Current.Periodo
	}
	return s.Metadata.LastUpdate
}
