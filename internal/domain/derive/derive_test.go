package derive_test

import (
	"os"
	"testing"

	"github.com/okian/ipa27/internal/domain/derive"
	"github.com/okian/ipa27/internal/domain/snapshot"
	. "github.com/smartystreets/goconvey/convey"
)

const epsilon = 1e-9

func mustDecode(doc string) *snapshot.Snapshot {
	s, err := snapshot.Decode([]byte(doc))
	if err != nil {
		panic(err)
	}
	return s
}

func fixture(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	data, err := os.ReadFile("../snapshot/testdata/dashboard_data.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	s, err := snapshot.Decode(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return s
}

func TestDomains(t *testing.T) {
	tr := derive.New()

	Convey("Given a domain ahead of the reference", t, func() {
		s := mustDecode(`{"current": {"and": {"dominios": {"X": 52.8}}, "esp": {"dominios": {"X": 49.5}}}}`)
		d := tr.Domains(s)

		So(d, ShouldHaveLength, 1)
		So(d[0].Domain, ShouldEqual, "X")
		So(d[0].Gap, ShouldAlmostEqual, 3.3, epsilon)
		So(d[0].Classification, ShouldEqual, derive.NonNegative)
		So(d[0].Color, ShouldEqual, "#10b981")
	})

	Convey("Given a domain behind the reference", t, func() {
		s := mustDecode(`{"current": {"and": {"dominios": {"Y": 38.2}}, "esp": {"dominios": {"Y": 61.0}}}}`)
		d := tr.Domains(s)

		So(d, ShouldHaveLength, 1)
		So(d[0].Gap, ShouldAlmostEqual, -22.8, epsilon)
		So(d[0].Classification, ShouldEqual, derive.Negative)
		So(d[0].Color, ShouldEqual, "#ef4444")
	})

	Convey("Given equal scores", t, func() {
		s := mustDecode(`{"current": {"and": {"dominios": {"Z": 50}}, "esp": {"dominios": {"Z": 50}}}}`)
		d := tr.Domains(s)

		So(d[0].Gap, ShouldEqual, 0)
		So(d[0].Classification, ShouldEqual, derive.NonNegative)
	})

	Convey("Given the exported document", t, func() {
		s := fixture(t)
		d := tr.Domains(s)

		Convey("Then every gap is and minus esp in document order", func() {
			So(d, ShouldHaveLength, 3)
			for _, g := range d {
				a, _ := s.Current.And.Dominios.Get(g.Domain)
				e, _ := s.Current.Esp.Dominios.Get(g.Domain)
				So(g.Gap, ShouldEqual, a-e)
				So(g.Classification == derive.NonNegative, ShouldEqual, g.Gap >= 0)
			}
			So(d[0].Domain, ShouldEqual, "Sociedades Inclusivas")
			So(d[2].Domain, ShouldEqual, "Personas Empoderadas")
		})
	})
}

func TestPillars(t *testing.T) {
	tr := derive.New()

	Convey("Given the exported document", t, func() {
		s := fixture(t)
		p := tr.Pillars(s)

		Convey("Then there is one point per pillar in document order", func() {
			So(p, ShouldHaveLength, s.Current.And.Pilares.Len())
			for i, k := range s.Current.And.Pilares.Keys() {
				So(p[i].Pillar, ShouldEqual, k)
				So(p[i].EspMissing, ShouldBeFalse)
			}
			So(p[9].Pillar, ShouldEqual, "Salud")
			So(p[9].And, ShouldEqual, 47.2)
			So(p[9].Esp, ShouldEqual, 63.1)
		})
	})

	Convey("Given a pillar missing on the reference side", t, func() {
		s := mustDecode(`{"current": {"and": {"pilares": {"Vida": 32.4, "Salud": 47.2}}, "esp": {"pilares": {"Salud": 63.1}}}}`)
		p := tr.Pillars(s)

		So(p, ShouldHaveLength, 2)
		So(p[0].Esp, ShouldEqual, 0)
		So(p[0].EspMissing, ShouldBeTrue)
		So(p[1].EspMissing, ShouldBeFalse)
	})

	Convey("Given no current section", t, func() {
		So(tr.Pillars(&snapshot.Snapshot{}), ShouldBeEmpty)
		So(tr.Pillars(nil), ShouldNotBeNil)
	})
}

func TestIndicators(t *testing.T) {
	Convey("Given the exported document", t, func() {
		s := fixture(t)
		rows := derive.New().Indicators(s)

		Convey("Then rows follow the structure", func() {
			So(rows, ShouldHaveLength, 24)
			So(rows[0].Domain, ShouldEqual, "Sociedades Inclusivas")
			So(rows[0].Pillar, ShouldEqual, "1. Seguridad")
			So(rows[0].PillarName, ShouldEqual, "Seguridad")
			So(rows[0].Code, ShouldEqual, "SEG_BAL")
			So(rows[0].Name, ShouldEqual, "Balance de Criminalidad")
		})

		Convey("Then the pillar score is the reference", func() {
			So(rows[0].ReferenceSource, ShouldEqual, derive.SourcePillar)
			So(rows[0].Reference, ShouldEqual, 52.1)
			So(rows[0].Gap, ShouldAlmostEqual, 6.0, epsilon)
			So(rows[16].Code, ShouldEqual, "VID_ARO")
			So(rows[16].Gap, ShouldAlmostEqual, -29.0, epsilon)
		})

		Convey("Then indicator references are preferred when enabled", func() {
			rows := derive.New(derive.WithIndicatorReference(true)).Indicators(s)
			So(rows[0].ReferenceSource, ShouldEqual, derive.SourceIndicator)
			So(rows[0].Reference, ShouldEqual, 53.0)
			So(rows[0].Gap, ShouldAlmostEqual, 5.1, epsilon)

			r := rows[7]
			So(r.Code, ShouldEqual, "SOC_PAR_enlazado")
			So(r.ReferenceSource, ShouldEqual, derive.SourcePillar)
			So(r.Gap, ShouldAlmostEqual, 8.1, epsilon)
		})

		Convey("Then SOC_PAR_enlazado uses the pillar score", func() {
			r := rows[7]
			So(r.Code, ShouldEqual, "SOC_PAR_enlazado")
			So(r.ReferenceSource, ShouldEqual, derive.SourcePillar)
			So(r.Reference, ShouldEqual, 48.9)
			So(r.Gap, ShouldAlmostEqual, 8.1, epsilon)
		})

		Convey("Then no row falls back", func() {
			So(derive.CountFallback(rows), ShouldEqual, 0)
		})
	})

	Convey("Given an indicator without any comparator", t, func() {
		s := mustDecode(`{
			"current": {"and": {"indicadores": {"VID_ARO": 29.7}}, "esp": {"pilares": {"Salud": 63.1}}},
			"metadata": {"structure": {"Personas Empoderadas": {"9. Vida": ["VID_ARO"]}}}
		}`)
		rows := derive.New().Indicators(s)

		Convey("Then the gap is exactly zero against the fallback", func() {
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Gap, ShouldEqual, 0)
			So(rows[0].Reference, ShouldEqual, 50)
			So(rows[0].Value, ShouldEqual, 29.7)
			So(rows[0].ReferenceSource, ShouldEqual, derive.SourceFallback)
			So(rows[0].ValueMissing, ShouldBeFalse)
		})

		Convey("Then a configured fallback reference is used", func() {
			rows := derive.New(derive.WithFallbackReference(40)).Indicators(s)
			So(rows[0].Reference, ShouldEqual, 40)
			So(rows[0].Gap, ShouldEqual, 0)
		})
	})

	Convey("Given a reference indicator value but no pillar score", t, func() {
		s := mustDecode(`{
			"current": {
				"and": {"indicadores": {"VID_ARO": 29.7}},
				"esp": {"pilares": {}, "indicadores": {"VID_ARO": 45}}
			},
			"metadata": {"structure": {"Personas Empoderadas": {"9. Vida": ["VID_ARO"]}}}
		}`)

		Convey("Then the default rule falls back with a zero gap", func() {
			rows := derive.New().Indicators(s)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Gap, ShouldEqual, 0)
			So(rows[0].Reference, ShouldEqual, 50)
			So(rows[0].ReferenceSource, ShouldEqual, derive.SourceFallback)
		})

		Convey("Then the indicator reference applies when enabled", func() {
			rows := derive.New(derive.WithIndicatorReference(true)).Indicators(s)
			So(rows[0].Reference, ShouldEqual, 45)
			So(rows[0].Gap, ShouldAlmostEqual, -15.3, epsilon)
			So(rows[0].ReferenceSource, ShouldEqual, derive.SourceIndicator)
		})
	})

	Convey("Given an indicator without a value", t, func() {
		s := mustDecode(`{
			"current": {"and": {"indicadores": {}}, "esp": {"indicadores": {"EDU_ABA": 60.2}}},
			"metadata": {"structure": {"Personas Empoderadas": {"11. Educación": ["EDU_ABA"]}}}
		}`)
		rows := derive.New().Indicators(s)

		So(rows, ShouldHaveLength, 1)
		So(rows[0].Gap, ShouldEqual, 0)
		So(rows[0].ValueMissing, ShouldBeTrue)
		So(rows[0].ReferenceSource, ShouldEqual, derive.SourceFallback)
	})
}

func TestBareLabel(t *testing.T) {
	Convey("Given pillar labels", t, func() {
		So(derive.BareLabel("4. Capital Social"), ShouldEqual, "Capital Social")
		So(derive.BareLabel("12. Conocimiento"), ShouldEqual, "Conocimiento")
		So(derive.BareLabel("Vida"), ShouldEqual, "Vida")
		So(derive.BareLabel("4.Capital"), ShouldEqual, "4.Capital")
		So(derive.BareLabel(". Vida"), ShouldEqual, ". Vida")
		So(derive.BareLabel(""), ShouldEqual, "")
	})
}

func TestSupplementaryViews(t *testing.T) {
	tr := derive.New()

	Convey("Given the exported document", t, func() {
		s := fixture(t)

		Convey("Then the headline compares the global index", func() {
			h := tr.Headline(s)
			So(h.Periodo, ShouldEqual, "2025Q3")
			So(h.Gap, ShouldAlmostEqual, -4.7, epsilon)
			So(h.Classification, ShouldEqual, derive.Negative)
		})

		Convey("Then highlights pick the extreme domains", func() {
			h := tr.Highlights(s)
			So(h.Strongest.Domain, ShouldEqual, "Sociedades Inclusivas")
			So(h.Weakest.Domain, ShouldEqual, "Personas Empoderadas")
		})

		Convey("Then the evolution gap is computed per period", func() {
			ev := tr.Evolution(s)
			So(ev.Labels, ShouldHaveLength, 7)
			So(ev.Gap, ShouldHaveLength, 7)
			So(*ev.Gap[6], ShouldAlmostEqual, -4.7, epsilon)
			So(ev.Domains[2].Values[0], ShouldBeNil)
		})

		Convey("Then bottlenecks keep their order", func() {
			b := tr.Bottlenecks(s)
			So(b, ShouldHaveLength, 3)
			So(b[1].Name, ShouldEqual, "Abandono Escolar")
		})
	})

	Convey("Given a bottleneck without a name", t, func() {
		s := mustDecode(`{"current": {"and": {}}, "bottlenecks": [{"code": "EDU_ABA", "value": 31.2}],
			"metadata": {"indicator_names": {"EDU_ABA": "Abandono Escolar"}}}`)
		So(tr.Bottlenecks(s)[0].Name, ShouldEqual, "Abandono Escolar")
	})

	Convey("Given misaligned evolution series", t, func() {
		s := mustDecode(`{"current": {"and": {}}, "evolution": {"labels": ["a", "b", "c"], "and_global": [1, 2], "esp_global": [1, 1, 1, 9]}}`)
		ev := tr.Evolution(s)

		So(ev.And, ShouldHaveLength, 3)
		So(ev.Esp, ShouldHaveLength, 3)
		So(ev.And[2], ShouldBeNil)
		So(ev.Gap[2], ShouldBeNil)
		So(*ev.Gap[1], ShouldEqual, 1)
	})

	Convey("Given no domains", t, func() {
		h := derive.HighlightsOf(nil)
		So(h.Strongest, ShouldBeNil)
		So(h.Weakest, ShouldBeNil)
	})
}

func TestAll(t *testing.T) {
	tr := derive.New()

	Convey("Given the same snapshot twice", t, func() {
		s := fixture(t)
		a, b := tr.All(s), tr.All(s)

		Convey("Then the derived views are identical", func() {
			So(a, ShouldResemble, b)
			So(a.LastUpdate, ShouldEqual, "2025Q3")
			So(a.FallbackRows, ShouldEqual, 0)
		})
	})

	Convey("Given empty mappings", t, func() {
		s := mustDecode(`{"current": {"and": {"pilares": {}, "dominios": {}}, "esp": {"pilares": {}, "dominios": {}}}}`)
		v := tr.All(s)

		Convey("Then every series is empty and not nil", func() {
			So(v.Pillars, ShouldNotBeNil)
			So(v.Pillars, ShouldBeEmpty)
			So(v.Domains, ShouldNotBeNil)
			So(v.Domains, ShouldBeEmpty)
			So(v.Indicators, ShouldBeEmpty)
			So(v.Highlights.Strongest, ShouldBeNil)
			So(v.Evolution.Labels, ShouldBeEmpty)
		})
	})

	Convey("Given a nil snapshot", t, func() {
		So(func() { tr.All(nil) }, ShouldNotPanic)
	})
}
