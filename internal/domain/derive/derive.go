// Package derive turns a dashboard snapshot into the series drawn by the
// charts and cards: pillar comparison, domain gaps and indicator gap rows,
// plus the headline, highlights, bottlenecks and evolution views.
//
// Every function is pure. The same snapshot always yields identical output
// and empty mappings yield empty, non-nil slices.
package derive

import (
	"github.com/okian/ipa27/internal/domain/snapshot"
)

// DefaultFallbackReference is used when an indicator has no comparator.
const DefaultFallbackReference = 50

// Transformer derives views from snapshots.
type Transformer struct {
	fallbackReference  float64
	indicatorReference bool
}

// New creates a Transformer.
func New(opts ...Option) *Transformer {
	t := &Transformer{fallbackReference: DefaultFallbackReference}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FallbackReference returns the configured fallback reference.
func (t *Transformer) FallbackReference() float64 { return t.fallbackReference }

// IndicatorReference reports whether the reference region's own indicator
// values are preferred over its pillar scores.
func (t *Transformer) IndicatorReference() bool { return t.indicatorReference }

// Pillars pairs both regions' scores for every pillar of current.and.pilares,
// in document order. A pillar without a reference score reports Esp as 0.
func (t *Transformer) Pillars(s *snapshot.Snapshot) []PillarPoint {
	if s == nil || s.Current == nil {
		return []PillarPoint{}
	}
	and, esp := s.Current.And.Pilares, s.Current.Esp.Pilares
	out := make([]PillarPoint, 0, and.Len())
	for _, k := range and.Keys() {
		a, _ := and.Get(k)
		e, ok := esp.Get(k)
		out = append(out, PillarPoint{Pillar: k, And: a, Esp: e, EspMissing: !ok})
	}
	return out
}

// Domains computes and - esp for every domain of current.and.dominios.
func (t *Transformer) Domains(s *snapshot.Snapshot) []DomainGap {
	if s == nil || s.Current == nil {
		return []DomainGap{}
	}
	and, esp := s.Current.And.Dominios, s.Current.Esp.Dominios
	out := make([]DomainGap, 0, and.Len())
	for _, k := range and.Keys() {
		a, _ := and.Get(k)
		e, ok := esp.Get(k)
		gap := a - e
		c := Classify(gap)
		out = append(out, DomainGap{
			Domain:         k,
			And:            a,
			Esp:            e,
			Gap:            gap,
			Classification: c,
			Color:          c.Color(),
			EspMissing:     !ok,
		})
	}
	return out
}

// Indicators walks metadata.structure and computes one gap row per indicator.
//
// The reference is the reference region's score for the enclosing pillar
// (looked up by BareLabel). Without it, or without a value for the
// indicator itself, the row uses the fallback reference and a gap of
// exactly 0. WithIndicatorReference puts the reference region's own
// indicator value ahead of the pillar score.
func (t *Transformer) Indicators(s *snapshot.Snapshot) []IndicatorRow {
	out := []IndicatorRow{}
	if s == nil || s.Current == nil {
		return out
	}
	and, esp := s.Current.And, s.Current.Esp
	for _, d := range s.Metadata.Structure {
		for _, p := range d.Pillars {
			bare := BareLabel(p.Label)
			for _, code := range p.Codes {
				row := IndicatorRow{
					Domain:     d.Name,
					Pillar:     p.Label,
					PillarName: bare,
					Code:       code,
					Name:       s.IndicatorName(code),
				}
				value, hasValue := and.Indicadores.Get(code)
				ref, src := t.reference(esp, code, bare)
				if !hasValue || src == SourceFallback {
					row.Value = value
					if !hasValue {
						row.Value = t.fallbackReference
					}
					row.Reference = t.fallbackReference
					row.ReferenceSource = SourceFallback
					row.ValueMissing = !hasValue
					row.Classification = NonNegative
					out = append(out, row)
					continue
				}
				row.Value = value
				row.Reference = ref
				row.Gap = value - ref
				row.ReferenceSource = src
				row.Classification = Classify(row.Gap)
				out = append(out, row)
			}
		}
	}
	return out
}

func (t *Transformer) reference(esp snapshot.Region, code, pillar string) (float64, ReferenceSource) {
	if t.indicatorReference {
		if v, ok := esp.Indicadores.Get(code); ok {
			return v, SourceIndicator
		}
	}
	if v, ok := esp.Pilares.Get(pillar); ok {
		return v, SourcePillar
	}
	return t.fallbackReference, SourceFallback
}

// Headline returns the global index of both regions.
func (t *Transformer) Headline(s *snapshot.Snapshot) Headline {
	if s == nil || s.Current == nil {
		return Headline{Periodo: s.Periodo(), Classification: NonNegative}
	}
	gap := s.Current.And.Global - s.Current.Esp.Global
	return Headline{
		Periodo:        s.Periodo(),
		And:            s.Current.And.Global,
		Esp:            s.Current.Esp.Global,
		Gap:            gap,
		Classification: Classify(gap),
	}
}

// HighlightsOf picks the domains with the largest and smallest gap. Ties go
// to the domain listed first.
func HighlightsOf(domains []DomainGap) Highlights {
	var h Highlights
	for i := range domains {
		d := domains[i]
		if h.Strongest == nil || d.Gap > h.Strongest.Gap {
			h.Strongest = &d
		}
		if h.Weakest == nil || d.Gap < h.Weakest.Gap {
			h.Weakest = &d
		}
	}
	return h
}

// Highlights returns the strongest and weakest domains of s.
func (t *Transformer) Highlights(s *snapshot.Snapshot) Highlights {
	return HighlightsOf(t.Domains(s))
}

// Bottlenecks returns the snapshot's bottleneck list with display names
// resolved from metadata when a record carries none.
func (t *Transformer) Bottlenecks(s *snapshot.Snapshot) []Bottleneck {
	if s == nil {
		return []Bottleneck{}
	}
	out := make([]Bottleneck, 0, len(s.Bottlenecks))
	for _, b := range s.Bottlenecks {
		name := b.Name
		if name == "" {
			name = s.IndicatorName(b.Code)
		}
		out = append(out, Bottleneck{Code: b.Code, Name: name, Value: b.Value})
	}
	return out
}

// Evolution aligns the historical series to the labels and adds the global
// gap per period. Periods missing either value have a nil gap.
func (t *Transformer) Evolution(s *snapshot.Snapshot) Evolution {
	ev := Evolution{Labels: []string{}, And: []*float64{}, Esp: []*float64{}, Gap: []*float64{}, Domains: []Series{}}
	if s == nil {
		return ev
	}
	src := s.Evolution
	n := len(src.Labels)
	ev.Labels = append(ev.Labels, src.Labels...)
	ev.And = align(src.AndGlobal, n)
	ev.Esp = align(src.EspGlobal, n)
	ev.Gap = make([]*float64, n)
	for i := 0; i < n; i++ {
		if ev.And[i] == nil || ev.Esp[i] == nil {
			continue
		}
		g := *ev.And[i] - *ev.Esp[i]
		ev.Gap[i] = &g
	}
	for _, series := range src.AndDominios {
		ev.Domains = append(ev.Domains, Series{Name: series.Name, Values: align(series.Values, n)})
	}
	return ev
}

// align copies values into a slice of length n, padding with nil and
// dropping values past n.
func align(values []*float64, n int) []*float64 {
	out := make([]*float64, n)
	for i := 0; i < n && i < len(values); i++ {
		if values[i] == nil {
			continue
		}
		v := *values[i]
		out[i] = &v
	}
	return out
}

// All derives every view of s.
func (t *Transformer) All(s *snapshot.Snapshot) Views {
	domains := t.Domains(s)
	v := Views{
		Periodo:     s.Periodo(),
		Headline:    t.Headline(s),
		Pillars:     t.Pillars(s),
		Domains:     domains,
		Indicators:  t.Indicators(s),
		Highlights:  HighlightsOf(domains),
		Bottlenecks: t.Bottlenecks(s),
		Evolution:   t.Evolution(s),
	}
	if s != nil {
		v.LastUpdate = s.Metadata.LastUpdate
	}
	v.FallbackRows = CountFallback(v.Indicators)
	return v
}

// CountFallback returns how many rows use the fallback reference.
func CountFallback(rows []IndicatorRow) int {
	n := 0
	for _, r := range rows {
		if r.ReferenceSource == SourceFallback {
			n++
		}
	}
	return n
}
