// Package site serves the server-rendered dashboard and methodology screens.
package site

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/okian/ipa27/internal/adapters/repository"
	"github.com/okian/ipa27/internal/chart"
	"github.com/okian/ipa27/internal/domain/derive"
	"github.com/okian/ipa27/pkg/logger"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Screens
const (
	ScreenDashboard   = "dashboard"
	ScreenMethodology = "methodology"
	screenLoading     = "loading"
)

// Dependencies are the read operations the site renders from.
type Dependencies interface {
	Views(ctx context.Context) (derive.Views, string, error)
	State(ctx context.Context) repository.Status
}

// Handler renders the site screens.
type Handler struct {
	deps Dependencies

	locale         string
	regionLabel    string
	referenceLabel string
	dataDir        string
	logger         logger.Logger

	nums        numbers
	pages       map[string]*template.Template
	methodology template.HTML
}

// page is the data of every template.
type page struct {
	Screen         string
	Title          string
	RegionLabel    string
	ReferenceLabel string

	Periodo     string
	LastUpdate  string
	Headline    derive.Headline
	Highlights  derive.Highlights
	Bottlenecks []derive.Bottleneck
	Indicators  []derive.IndicatorRow
	Fallback    int

	Radar      template.HTML
	DomainBars template.HTML
	Evolution  template.HTML
	DomainEvo  template.HTML

	Methodology template.HTML

	State     string
	LastError string
}

// New parses the embedded templates and methodology text.
func New(deps Dependencies, opts ...Option) (*Handler, error) {
	h := &Handler{
		deps:           deps,
		locale:         "es-ES",
		regionLabel:    "Andalucía",
		referenceLabel: "España",
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Named("site")
	}

	nums, err := newNumbers(h.locale)
	if err != nil {
		return nil, err
	}
	h.nums = nums

	funcs := template.FuncMap{
		"num":    nums.Num,
		"signed": nums.Signed,
		"label":  derive.BareLabel,
	}
	h.pages = make(map[string]*template.Template)
	for _, screen := range []string{ScreenDashboard, ScreenMethodology, screenLoading} {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(siteFS, "templates/layout.html", "templates/"+screen+".html")
		if err != nil {
			return nil, fmt.Errorf("%w: parse %s: %w", ErrRender, screen, err)
		}
		h.pages[screen] = t
	}

	md, err := fs.ReadFile(siteFS, "content/methodology.md")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	var buf bytes.Buffer
	if err := goldmark.New(goldmark.WithExtensions(extension.GFM)).Convert(md, &buf); err != nil {
		return nil, fmt.Errorf("%w: methodology: %w", ErrRender, err)
	}
	h.methodology = template.HTML(buf.String()) //nolint:gosec // rendered from an embedded file
	return h, nil
}

// Mount attaches the site routes to r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/", h.handleRoot)
	r.Get("/metodologia", h.handleMethodology)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(FS())))
	if h.dataDir != "" {
		r.Handle("/data/*", http.StripPrefix("/data/", http.FileServer(http.Dir(h.dataDir))))
	}
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("view") == ScreenMethodology {
		h.handleMethodology(w, r)
		return
	}
	h.handleDashboard(w, r)
}

func (h *Handler) handleMethodology(w http.ResponseWriter, r *http.Request) {
	p := h.basePage(ScreenMethodology, "Metodología")
	p.Methodology = h.methodology
	h.render(w, r, http.StatusOK, ScreenMethodology, p)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	v, _, err := h.deps.Views(r.Context())
	if err != nil {
		st := h.deps.State(r.Context())
		p := h.basePage(screenLoading, "Cargando datos")
		p.State = string(st.State)
		p.LastError = st.LastError
		w.Header().Set("Retry-After", "5")
		h.render(w, r, http.StatusServiceUnavailable, screenLoading, p)
		return
	}

	p := h.basePage(ScreenDashboard, "Dashboard")
	p.Periodo = v.Periodo
	p.LastUpdate = v.LastUpdate
	p.Headline = v.Headline
	p.Highlights = v.Highlights
	p.Bottlenecks = v.Bottlenecks
	p.Indicators = v.Indicators
	p.Fallback = v.FallbackRows
	h.charts(r.Context(), &p, v)
	h.render(w, r, http.StatusOK, ScreenDashboard, p)
}

func (h *Handler) basePage(screen, title string) page {
	return page{
		Screen:         screen,
		Title:          title,
		RegionLabel:    h.regionLabel,
		ReferenceLabel: h.referenceLabel,
	}
}

// charts renders every chart of the dashboard. A chart that cannot be drawn
// (e.g. no evolution data) is left empty and the template skips it.
func (h *Handler) charts(ctx context.Context, p *page, v derive.Views) {
	var err error
	if len(v.Pillars) > 0 {
		labels := make([]string, len(v.Pillars))
		and := make([]float64, len(v.Pillars))
		esp := make([]float64, len(v.Pillars))
		for i, pt := range v.Pillars {
			labels[i], and[i], esp[i] = derive.BareLabel(pt.Pillar), pt.And, pt.Esp
		}
		p.Radar, err = chart.Radar(560, 480, and, esp, labels, chart.RadarOpts{
			Title: "Comparativa por Pilares", LabelA: h.regionLabel, LabelB: h.referenceLabel, Format: h.nums.Num,
		})
		h.chartError(ctx, "radar", err)
	}

	if len(v.Domains) > 0 {
		labels := make([]string, len(v.Domains))
		gaps := make([]float64, len(v.Domains))
		for i, d := range v.Domains {
			labels[i], gaps[i] = d.Domain, d.Gap
		}
		p.DomainBars, err = chart.GapBars(560, gaps, labels, chart.BarOpts{
			Title:         "Brechas por Dominio",
			Description:   fmt.Sprintf("Brecha (%s - %s)", h.regionLabel, h.referenceLabel),
			PositiveColor: derive.ColorNonNegative,
			NegativeColor: derive.ColorNegative,
			Format:        h.nums.Num,
		})
		h.chartError(ctx, "domain bars", err)
	}

	evo := v.Evolution
	if len(evo.Labels) > 0 {
		p.Evolution, err = chart.Lines(720, 300, []chart.Series{
			{Name: h.regionLabel, Color: derive.ColorRegion, Values: evo.And},
			{Name: h.referenceLabel, Color: derive.ColorReference, Values: evo.Esp},
		}, evo.Labels, chart.LineOpts{Title: "Evolución del índice global", ShowDots: true, Format: h.nums.Num})
		h.chartError(ctx, "evolution", err)

		if len(evo.Domains) > 0 {
			series := make([]chart.Series, len(evo.Domains))
			for i, s := range evo.Domains {
				series[i] = chart.Series{Name: s.Name, Values: s.Values}
			}
			p.DomainEvo, err = chart.Lines(720, 300, series, evo.Labels, chart.LineOpts{
				Title: "Evolución por dominio (" + h.regionLabel + ")", Format: h.nums.Num,
			})
			h.chartError(ctx, "domain evolution", err)
		}
	}
}

func (h *Handler) chartError(ctx context.Context, name string, err error) {
	if err != nil {
		h.logger.Debug(ctx, "chart skipped", logger.String("chart", name), logger.Error(err))
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, screen string, p page) {
	var buf bytes.Buffer
	if err := h.pages[screen].Execute(&buf, p); err != nil {
		h.logger.Error(r.Context(), "render failed", logger.String("screen", screen), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
