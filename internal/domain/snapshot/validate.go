package snapshot

import (
	"fmt"
	"sort"
)

// Validate reports structural inconsistencies of the snapshot. None of them
// prevents rendering, so they are returned as warnings rather than errors.
func (s *Snapshot) Validate() []string {
	warnings := []string{}
	if s == nil || s.Current == nil {
		return append(warnings, "current section is missing")
	}

	and, esp := s.Current.And, s.Current.Esp
	warnings = append(warnings, keySetDiff("pilares", and.Pilares, esp.Pilares)...)
	warnings = append(warnings, keySetDiff("dominios", and.Dominios, esp.Dominios)...)
	if esp.HasIndicadores {
		warnings = append(warnings, keySetDiff("indicadores", and.Indicadores, esp.Indicadores)...)
	}

	n := len(s.Evolution.Labels)
	if len(s.Evolution.AndGlobal) != n {
		warnings = append(warnings, fmt.Sprintf("evolution.and_global has %d values for %d labels", len(s.Evolution.AndGlobal), n))
	}
	if len(s.Evolution.EspGlobal) != n {
		warnings = append(warnings, fmt.Sprintf("evolution.esp_global has %d values for %d labels", len(s.Evolution.EspGlobal), n))
	}
	for _, series := range s.Evolution.AndDominios {
		if len(series.Values) != n {
			warnings = append(warnings, fmt.Sprintf("evolution.and_dominios[%q] has %d values for %d labels", series.Name, len(series.Values), n))
		}
	}

	for _, d := range s.Metadata.Structure {
		for _, p := range d.Pillars {
			for _, code := range p.Codes {
				if _, ok := and.Indicadores.Get(code); !ok {
					warnings = append(warnings, fmt.Sprintf("indicator %s (%s / %s) has no current.and.indicadores entry", code, d.Name, p.Label))
				}
			}
		}
	}
	return warnings
}

func keySetDiff(section string, and, esp Scores) []string {
	var onlyAnd, onlyEsp []string
	for _, k := range and.keys {
		if _, ok := esp.Get(k); !ok {
			onlyAnd = append(onlyAnd, k)
		}
	}
	for _, k := range esp.keys {
		if _, ok := and.Get(k); !ok {
			onlyEsp = append(onlyEsp, k)
		}
	}
	sort.Strings(onlyAnd)
	sort.Strings(onlyEsp)

	var out []string
	if len(onlyAnd) > 0 {
		out = append(out, fmt.Sprintf("%s keys only in and: %v", section, onlyAnd))
	}
	if len(onlyEsp) > 0 {
		out = append(out, fmt.Sprintf("%s keys only in esp: %v", section, onlyEsp))
	}
	return out
}
