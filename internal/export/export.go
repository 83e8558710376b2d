// Package export writes the derived views as an XLSX workbook.
package export

import (
	"fmt"
	"io"

	"github.com/okian/ipa27/internal/domain/derive"
	"github.com/xuri/excelize/v2"
)

// ContentType is the media type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names in workbook order.
const (
	SheetSummary    = "Resumen"
	SheetPillars    = "Pilares"
	SheetDomains    = "Dominios"
	SheetIndicators = "Indicadores"
	SheetEvolution  = "Evolucion"
)

// Labels name the compared regions in column headers.
type Labels struct {
	Region    string
	Reference string
}

func (l Labels) orDefault() Labels {
	if l.Region == "" {
		l.Region = "Andalucía"
	}
	if l.Reference == "" {
		l.Reference = "España"
	}
	return l
}

// Workbook builds a workbook with one sheet per view. The caller must Close it.
func Workbook(v derive.Views, labels Labels) (*excelize.File, error) {
	labels = labels.orDefault()
	f := excelize.NewFile()

	// NewFile starts with "Sheet1"; rename it rather than leave it empty.
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		_ = f.Close()
		return nil, err
	}
	for _, name := range []string{SheetPillars, SheetDomains, SheetIndicators, SheetEvolution} {
		if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E2E8F0"}},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	w := &writer{f: f, header: header}
	w.summary(v, labels)
	w.pillars(v.Pillars, labels)
	w.domains(v.Domains, labels)
	w.indicators(v.Indicators, labels)
	w.evolution(v.Evolution, labels)
	if w.err != nil {
		_ = f.Close()
		return nil, w.err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write builds the workbook and writes it to out.
func Write(out io.Writer, v derive.Views, labels Labels) error {
	f, err := Workbook(v, labels)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = f.WriteTo(out)
	return err
}

// writer keeps the first error so sheet builders stay linear.
type writer struct {
	f      *excelize.File
	header int
	err    error
}

func (w *writer) row(sheet string, n int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("%s row %d: %w", sheet, n, err)
	}
}

func (w *writer) head(sheet string, values ...any) {
	w.row(sheet, 1, values...)
	if w.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(values), 1)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellStyle(sheet, "A1", last, w.header); err != nil {
		w.err = err
		return
	}
	if err := w.f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		w.err = err
	}
}

func (w *writer) summary(v derive.Views, l Labels) {
	w.head(SheetSummary, "Campo", "Valor")
	rows := [][]any{
		{"Periodo", v.Periodo},
		{"Última actualización", v.LastUpdate},
		{"Índice " + l.Region, v.Headline.And},
		{"Índice " + l.Reference, v.Headline.Esp},
		{"Brecha", v.Headline.Gap},
		{"Clasificación", string(v.Headline.Classification)},
	}
	if s := v.Highlights.Strongest; s != nil {
		rows = append(rows, []any{"Dominio más fuerte", fmt.Sprintf("%s (%+.1f)", s.Domain, s.Gap)})
	}
	if s := v.Highlights.Weakest; s != nil {
		rows = append(rows, []any{"Dominio más débil", fmt.Sprintf("%s (%+.1f)", s.Domain, s.Gap)})
	}
	rows = append(rows, []any{"Indicadores con referencia por defecto", v.FallbackRows})
	for i, b := range v.Bottlenecks {
		rows = append(rows, []any{fmt.Sprintf("Cuello de botella %d", i+1), fmt.Sprintf("%s %s (%.1f)", b.Code, b.Name, b.Value)})
	}
	for i, r := range rows {
		w.row(SheetSummary, i+2, r...)
	}
	w.width(SheetSummary, "A", 38)
	w.width(SheetSummary, "B", 40)
}

func (w *writer) pillars(points []derive.PillarPoint, l Labels) {
	w.head(SheetPillars, "Pilar", l.Region, l.Reference, "Brecha")
	for i, p := range points {
		w.row(SheetPillars, i+2, p.Pillar, p.And, optional(p.Esp, p.EspMissing), optional(p.And-p.Esp, p.EspMissing))
	}
	w.width(SheetPillars, "A", 32)
}

func (w *writer) domains(gaps []derive.DomainGap, l Labels) {
	w.head(SheetDomains, "Dominio", l.Region, l.Reference, "Brecha", "Clasificación")
	for i, d := range gaps {
		w.row(SheetDomains, i+2, d.Domain, d.And, optional(d.Esp, d.EspMissing), d.Gap, string(d.Classification))
	}
	w.width(SheetDomains, "A", 32)
}

func (w *writer) indicators(rows []derive.IndicatorRow, l Labels) {
	w.head(SheetIndicators, "Dominio", "Pilar", "Código", "Indicador", l.Region, "Referencia", "Brecha", "Origen referencia", "Clasificación", "Sin dato")
	for i, r := range rows {
		w.row(SheetIndicators, i+2, r.Domain, r.PillarName, r.Code, r.Name,
			optional(r.Value, r.ValueMissing), r.Reference, r.Gap,
			string(r.ReferenceSource), string(r.Classification), r.ValueMissing)
	}
	w.width(SheetIndicators, "D", 40)
}

func (w *writer) evolution(e derive.Evolution, l Labels) {
	head := []any{"Periodo", l.Region, l.Reference, "Brecha"}
	for _, s := range e.Domains {
		head = append(head, s.Name)
	}
	w.head(SheetEvolution, head...)
	for i, label := range e.Labels {
		row := []any{label, at(e.And, i), at(e.Esp, i), at(e.Gap, i)}
		for _, s := range e.Domains {
			row = append(row, at(s.Values, i))
		}
		w.row(SheetEvolution, i+2, row...)
	}
}

func (w *writer) width(sheet, col string, width float64) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetColWidth(sheet, col, col, width)
}

// optional leaves the cell empty for missing values.
func optional(v float64, missing bool) any {
	if missing {
		return nil
	}
	return v
}

func at(values []*float64, i int) any {
	if i >= len(values) || values[i] == nil {
		return nil
	}
	return *values[i]
}
