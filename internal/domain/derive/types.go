package derive

// Classification is the presentation category of a gap.
type Classification string

const (
	NonNegative Classification = "non-negative"
	Negative    Classification = "negative"
)

// Colour tokens for gap classifications and the compared regions.
const (
	ColorNonNegative = "#10b981"
	ColorNegative    = "#ef4444"
	ColorRegion      = "#10b981"
	ColorReference   = "#6366f1"
)

// Classify returns NonNegative iff gap >= 0.
func Classify(gap float64) Classification {
	if gap >= 0 {
		return NonNegative
	}
	return Negative
}

// Color returns the colour token of c.
func (c Classification) Color() string {
	if c == Negative {
		return ColorNegative
	}
	return ColorNonNegative
}

// ReferenceSource tells where an indicator row's reference came from.
type ReferenceSource string

const (
	// SourceIndicator is the reference region's own indicator value.
	SourceIndicator ReferenceSource = "indicator"
	// SourcePillar is the reference region's score for the enclosing pillar.
	SourcePillar ReferenceSource = "pillar"
	// SourceFallback means no comparator was found; the gap is reported as 0.
	SourceFallback ReferenceSource = "fallback"
)

// PillarPoint pairs both regions' scores for one pillar.
type PillarPoint struct {
	Pillar     string  `json:"pillar" yaml:"pillar"`
	And        float64 `json:"and" yaml:"and"`
	Esp        float64 `json:"esp" yaml:"esp"`
	EspMissing bool    `json:"esp_missing,omitempty" yaml:"esp_missing,omitempty"`
}

// DomainGap is the gap between both regions for one domain.
type DomainGap struct {
	Domain         string         `json:"domain" yaml:"domain"`
	And            float64        `json:"and" yaml:"and"`
	Esp            float64        `json:"esp" yaml:"esp"`
	Gap            float64        `json:"gap" yaml:"gap"`
	Classification Classification `json:"classification" yaml:"classification"`
	Color          string         `json:"color" yaml:"color"`
	EspMissing     bool           `json:"esp_missing,omitempty" yaml:"esp_missing,omitempty"`
}

// IndicatorRow is the gap of one indicator against its reference.
type IndicatorRow struct {
	Domain          string          `json:"domain" yaml:"domain"`
	Pillar          string          `json:"pillar" yaml:"pillar"`
	PillarName      string          `json:"pillar_name" yaml:"pillar_name"`
	Code            string          `json:"code" yaml:"code"`
	Name            string          `json:"name" yaml:"name"`
	Value           float64         `json:"value" yaml:"value"`
	Reference       float64         `json:"reference" yaml:"reference"`
	Gap             float64         `json:"gap" yaml:"gap"`
	ReferenceSource ReferenceSource `json:"reference_source" yaml:"reference_source"`
	Classification  Classification  `json:"classification" yaml:"classification"`
	ValueMissing    bool            `json:"value_missing,omitempty" yaml:"value_missing,omitempty"`
}

// Headline is the global index of both regions.
type Headline struct {
	Periodo        string         `json:"periodo" yaml:"periodo"`
	And            float64        `json:"and" yaml:"and"`
	Esp            float64        `json:"esp" yaml:"esp"`
	Gap            float64        `json:"gap" yaml:"gap"`
	Classification Classification `json:"classification" yaml:"classification"`
}

// Highlights are the strongest and weakest domains by gap.
type Highlights struct {
	Strongest *DomainGap `json:"strongest,omitempty" yaml:"strongest,omitempty"`
	Weakest   *DomainGap `json:"weakest,omitempty" yaml:"weakest,omitempty"`
}

// Bottleneck is an underperforming indicator with its display name resolved.
type Bottleneck struct {
	Code  string  `json:"code" yaml:"code"`
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// Series is a named sequence aligned to Evolution.Labels; nil is no data.
type Series struct {
	Name   string     `json:"name" yaml:"name"`
	Values []*float64 `json:"values" yaml:"values"`
}

// Evolution is the historical view.
type Evolution struct {
	Labels  []string   `json:"labels" yaml:"labels"`
	And     []*float64 `json:"and" yaml:"and"`
	Esp     []*float64 `json:"esp" yaml:"esp"`
	Gap     []*float64 `json:"gap" yaml:"gap"`
	Domains []Series   `json:"domains" yaml:"domains"`
}

// Views bundles every derived view of one snapshot.
type Views struct {
	Periodo      string         `json:"periodo" yaml:"periodo"`
	LastUpdate   string         `json:"last_update" yaml:"last_update"`
	Headline     Headline       `json:"headline" yaml:"headline"`
	Pillars      []PillarPoint  `json:"pillars" yaml:"pillars"`
	Domains      []DomainGap    `json:"domains" yaml:"domains"`
	Indicators   []IndicatorRow `json:"indicators" yaml:"indicators"`
	Highlights   Highlights     `json:"highlights" yaml:"highlights"`
	Bottlenecks  []Bottleneck   `json:"bottlenecks" yaml:"bottlenecks"`
	Evolution    Evolution      `json:"evolution" yaml:"evolution"`
	FallbackRows int            `json:"fallback_rows" yaml:"fallback_rows"`
}
