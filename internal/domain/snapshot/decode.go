package snapshot

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Decode parses a dashboard document. Mapping order follows the document.
//
// The document must be valid JSON with an object-valued current section
// holding at least the and region; anything else is ErrMalformed. Null
// scores are skipped, matching how the exporter writes missing values.
func Decode(data []byte) (*Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: document is not an object", ErrMalformed)
	}

	cur := root.Get("current")
	if !cur.IsObject() {
		return nil, fmt.Errorf("%w: missing current section", ErrMalformed)
	}
	if !cur.Get("and").IsObject() {
		return nil, fmt.Errorf("%w: missing current.and", ErrMalformed)
	}

	s := &Snapshot{}
	var err error

	c := &Current{Periodo: cur.Get("periodo").String()}
	if c.And, err = decodeRegion(cur.Get("and"), "current.and"); err != nil {
		return nil, err
	}
	if c.Esp, err = decodeRegion(cur.Get("esp"), "current.esp"); err != nil {
		return nil, err
	}
	s.Current = c

	if s.Evolution, err = decodeEvolution(root.Get("evolution")); err != nil {
		return nil, err
	}
	if s.Bottlenecks, err = decodeBottlenecks(root.Get("bottlenecks")); err != nil {
		return nil, err
	}
	if s.Metadata, err = decodeMetadata(root.Get("metadata")); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeRegion(r gjson.Result, path string) (Region, error) {
	var reg Region
	if !r.Exists() || r.Type == gjson.Null {
		return reg, nil
	}
	if !r.IsObject() {
		return reg, fmt.Errorf("%w: %s is not an object", ErrMalformed, path)
	}

	g := r.Get("global")
	switch g.Type {
	case gjson.Number:
		reg.Global = g.Float()
	case gjson.Null:
	default:
		return reg, fmt.Errorf("%w: %s.global is not a number", ErrMalformed, path)
	}

	var err error
	if reg.Dominios, err = decodeScores(r.Get("dominios"), path+".dominios"); err != nil {
		return reg, err
	}
	if reg.Pilares, err = decodeScores(r.Get("pilares"), path+".pilares"); err != nil {
		return reg, err
	}
	ind := r.Get("indicadores")
	reg.HasIndicadores = ind.IsObject()
	if reg.Indicadores, err = decodeScores(ind, path+".indicadores"); err != nil {
		return reg, err
	}
	return reg, nil
}

func decodeScores(r gjson.Result, path string) (Scores, error) {
	s := Scores{values: map[string]float64{}}
	if !r.Exists() || r.Type == gjson.Null {
		return s, nil
	}
	if !r.IsObject() {
		return s, fmt.Errorf("%w: %s is not an object", ErrMalformed, path)
	}
	var err error
	r.ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.Number:
			s.set(key.String(), value.Float())
		case gjson.Null:
		default:
			err = fmt.Errorf("%w: %s[%q] is not a number", ErrMalformed, path, key.String())
			return false
		}
		return true
	})
	return s, err
}

func decodeSeries(r gjson.Result, path string) ([]*float64, error) {
	if !r.Exists() || r.Type == gjson.Null {
		return []*float64{}, nil
	}
	if !r.IsArray() {
		return nil, fmt.Errorf("%w: %s is not an array", ErrMalformed, path)
	}
	arr := r.Array()
	out := make([]*float64, len(arr))
	for i, v := range arr {
		switch v.Type {
		case gjson.Number:
			f := v.Float()
			out[i] = &f
		case gjson.Null:
		default:
			return nil, fmt.Errorf("%w: %s[%d] is not a number", ErrMalformed, path, i)
		}
	}
	return out, nil
}

func decodeEvolution(r gjson.Result) (Evolution, error) {
	ev := Evolution{Labels: []string{}, AndGlobal: []*float64{}, EspGlobal: []*float64{}, AndDominios: []Series{}}
	if !r.Exists() || r.Type == gjson.Null {
		return ev, nil
	}
	if !r.IsObject() {
		return ev, fmt.Errorf("%w: evolution is not an object", ErrMalformed)
	}

	for _, l := range r.Get("labels").Array() {
		ev.Labels = append(ev.Labels, l.String())
	}

	var err error
	if ev.AndGlobal, err = decodeSeries(r.Get("and_global"), "evolution.and_global"); err != nil {
		return ev, err
	}
	if ev.EspGlobal, err = decodeSeries(r.Get("esp_global"), "evolution.esp_global"); err != nil {
		return ev, err
	}

	dom := r.Get("and_dominios")
	if dom.Exists() && dom.Type != gjson.Null && !dom.IsObject() {
		return ev, fmt.Errorf("%w: evolution.and_dominios is not an object", ErrMalformed)
	}
	dom.ForEach(func(key, value gjson.Result) bool {
		var vals []*float64
		vals, err = decodeSeries(value, "evolution.and_dominios."+key.String())
		if err != nil {
			return false
		}
		ev.AndDominios = append(ev.AndDominios, Series{Name: key.String(), Values: vals})
		return true
	})
	return ev, err
}

func decodeBottlenecks(r gjson.Result) ([]Bottleneck, error) {
	out := []Bottleneck{}
	if !r.Exists() || r.Type == gjson.Null {
		return out, nil
	}
	if !r.IsArray() {
		return nil, fmt.Errorf("%w: bottlenecks is not an array", ErrMalformed)
	}
	for i, b := range r.Array() {
		if !b.IsObject() {
			return nil, fmt.Errorf("%w: bottlenecks[%d] is not an object", ErrMalformed, i)
		}
		out = append(out, Bottleneck{
			Code:  b.Get("code").String(),
			Name:  b.Get("name").String(),
			Value: b.Get("value").Float(),
		})
	}
	return out, nil
}

func decodeMetadata(r gjson.Result) (Metadata, error) {
	md := Metadata{IndicatorNames: map[string]string{}, Structure: []Domain{}}
	if !r.Exists() || r.Type == gjson.Null {
		return md, nil
	}
	if !r.IsObject() {
		return md, fmt.Errorf("%w: metadata is not an object", ErrMalformed)
	}
	md.LastUpdate = r.Get("last_update").String()

	r.Get("indicator_names").ForEach(func(key, value gjson.Result) bool {
		md.IndicatorNames[key.String()] = value.String()
		return true
	})

	st := r.Get("structure")
	if st.Exists() && st.Type != gjson.Null && !st.IsObject() {
		return md, fmt.Errorf("%w: metadata.structure is not an object", ErrMalformed)
	}
	var err error
	st.ForEach(func(domain, pillars gjson.Result) bool {
		if !pillars.IsObject() {
			err = fmt.Errorf("%w: metadata.structure[%q] is not an object", ErrMalformed, domain.String())
			return false
		}
		d := Domain{Name: domain.String(), Pillars: []Pillar{}}
		pillars.ForEach(func(label, codes gjson.Result) bool {
			p := Pillar{Label: label.String(), Codes: []string{}}
			for _, c := range codes.Array() {
				p.Codes = append(p.Codes, c.String())
			}
			d.Pillars = append(d.Pillars, p)
			return true
		})
		md.Structure = append(md.Structure, d)
		return true
	})
	return md, err
}
