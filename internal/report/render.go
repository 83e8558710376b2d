package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/okian/ipa27/internal/domain/derive"
	"gopkg.in/yaml.v3"
)

// Table sections.
const (
	SectionHeadline   = "headline"
	SectionPillars    = "pillars"
	SectionDomains    = "domains"
	SectionIndicators = "indicators"
	SectionEvolution  = "evolution"
)

const missing = "n/d"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).MarginTop(1)
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	negativeStyle = cellStyle.Foreground(lipgloss.Color(derive.ColorNegative))
	positiveStyle = cellStyle.Foreground(lipgloss.Color(derive.ColorNonNegative))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
)

// Render writes v to w in cfg.Format.
func Render(w io.Writer, v derive.Views, warnings []string, cfg *Config) error {
	switch cfg.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable, "":
		return renderTables(w, v, warnings, cfg)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.Format)
}

func renderTables(w io.Writer, v derive.Views, warnings []string, cfg *Config) error {
	region, reference := labels(cfg)

	sections := []struct {
		name  string
		title string
		build func() *table.Table
	}{
		{SectionHeadline, "IPA27 " + v.Periodo, func() *table.Table { return headlineTable(v, region, reference) }},
		{SectionPillars, "Pilares", func() *table.Table { return pillarsTable(v, region, reference) }},
		{SectionDomains, "Dominios", func() *table.Table { return domainsTable(v, region, reference) }},
		{SectionIndicators, "Indicadores", func() *table.Table { return indicatorsTable(v) }},
		{SectionEvolution, "Evolución", func() *table.Table { return evolutionTable(v, region, reference) }},
	}

	found := cfg.Section == ""
	for _, s := range sections {
		if cfg.Section != "" && cfg.Section != s.name {
			continue
		}
		found = true
		if _, err := fmt.Fprintln(w, titleStyle.Render(s.title)); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, s.build().String()); err != nil {
			return err
		}
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrUnknownSection, cfg.Section)
	}

	for _, msg := range warnings {
		if _, err := fmt.Fprintln(w, warnStyle.Render("aviso: "+msg)); err != nil {
			return err
		}
	}
	return nil
}

func labels(cfg *Config) (string, string) {
	region, reference := cfg.Region, cfg.Reference
	if region == "" {
		region = "Andalucía"
	}
	if reference == "" {
		reference = "España"
	}
	return region, reference
}

// newTable styles gap columns by sign; gapCol < 0 disables it.
func newTable(rows [][]string, gapCol int, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == gapCol && row >= 0 && row < len(rows) {
				if g, err := strconv.ParseFloat(rows[row][col], 64); err == nil && g < 0 {
					return negativeStyle
				}
				return positiveStyle
			}
			return cellStyle
		})
}

func headlineTable(v derive.Views, region, reference string) *table.Table {
	rows := [][]string{{num(v.Headline.And), num(v.Headline.Esp), num(v.Headline.Gap), string(v.Headline.Classification)}}
	if v.LastUpdate != "" {
		rows[0] = append(rows[0], v.LastUpdate)
	} else {
		rows[0] = append(rows[0], missing)
	}
	return newTable(rows, 2, region, reference, "Brecha", "Clase", "Actualizado")
}

func pillarsTable(v derive.Views, region, reference string) *table.Table {
	rows := make([][]string, 0, len(v.Pillars))
	for _, p := range v.Pillars {
		esp := num(p.Esp)
		if p.EspMissing {
			esp = missing
		}
		rows = append(rows, []string{p.Pillar, num(p.And), esp})
	}
	return newTable(rows, -1, "Pilar", region, reference)
}

func domainsTable(v derive.Views, region, reference string) *table.Table {
	rows := make([][]string, 0, len(v.Domains))
	for _, d := range v.Domains {
		rows = append(rows, []string{d.Domain, num(d.And), num(d.Esp), num(d.Gap)})
	}
	return newTable(rows, 3, "Dominio", region, reference, "Brecha")
}

func indicatorsTable(v derive.Views) *table.Table {
	rows := make([][]string, 0, len(v.Indicators))
	for _, r := range v.Indicators {
		rows = append(rows, []string{r.Domain, r.Code, r.Name, num(r.Value), num(r.Reference), num(r.Gap), string(r.ReferenceSource)})
	}
	return newTable(rows, 5, "Dominio", "Código", "Indicador", "Valor", "Referencia", "Brecha", "Fuente")
}

func evolutionTable(v derive.Views, region, reference string) *table.Table {
	e := v.Evolution
	rows := make([][]string, 0, len(e.Labels))
	for i, label := range e.Labels {
		rows = append(rows, []string{label, at(e.And, i), at(e.Esp, i), at(e.Gap, i)})
	}
	return newTable(rows, 3, "Periodo", region, reference, "Brecha")
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) }

func at(values []*float64, i int) string {
	if i >= len(values) || values[i] == nil {
		return missing
	}
	return num(*values[i])
}
