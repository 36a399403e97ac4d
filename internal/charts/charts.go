// Package charts renders the report's PNG visualizations with gonum/plot.
//
// Each renderer takes the records a pipeline step produced and writes one
// or more fixed-name PNG files into the charts directory. Renderers are
// tolerant of empty input: with nothing to plot they skip the file and
// return nil, so a partially failed run still renders what it can.
package charts

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/scholargraph/countrystats/internal/domain"
)

// Chart file names inside the charts directory.
const (
	OAStatusChart           = "oa_status_distribution.png"
	TopFieldsChart          = "top_fields.png"
	FieldsOAShareChart      = "fields_oa_share.png"
	FieldsDistributionChart = "fields_distribution.png"
	AuthorsByWorksChart     = "top_authors_by_works.png"
	AuthorsByCitationsChart = "top_authors_by_citations.png"
	AuthorsScatterChart     = "authors_works_vs_citations.png"
	TopInstitutionsChart    = "top_institutions.png"
	CollaborationChart      = "collaboration_countries.png"
)

const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 6 * vg.Inch

	// maxBarEntries caps the rows of a bar chart so labels stay readable.
	maxBarEntries = 15

	// distributionTopN is how many fields the distribution chart names
	// individually; the rest are aggregated into one "Other" row so the
	// shares still cover the whole national output.
	distributionTopN = 8
)

var (
	barWidth = vg.Points(14)

	barBlue   = color.RGBA{R: 58, G: 121, B: 189, A: 255}
	barGreen  = color.RGBA{R: 82, G: 158, B: 114, A: 255}
	barOrange = color.RGBA{R: 222, G: 139, B: 55, A: 255}
)

// Renderer writes report charts into a single directory.
type Renderer struct {
	chartsDir string
}

// NewRenderer creates a renderer rooted at chartsDir, creating the
// directory if needed.
func NewRenderer(chartsDir string) (*Renderer, error) {
	if chartsDir == "" {
		return nil, fmt.Errorf("%w: charts directory is required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(chartsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating charts directory: %w", err)
	}
	return &Renderer{chartsDir: chartsDir}, nil
}

// ChartsDir returns the directory charts are written to.
func (r *Renderer) ChartsDir() string {
	return r.chartsDir
}

// Path returns the absolute path of a chart file.
func (r *Renderer) Path(name string) string {
	return filepath.Join(r.chartsDir, name)
}

// RenderOAStatus renders the open-access status distribution.
func (r *Renderer) RenderOAStatus(stats domain.OAStats) error {
	if len(stats.Breakdown) == 0 {
		return nil
	}

	names := make([]string, 0, len(stats.Breakdown))
	values := make([]float64, 0, len(stats.Breakdown))
	for _, share := range stats.Breakdown {
		names = append(names, fmt.Sprintf("%s (%.1f%%)", share.Status, share.Percentage))
		values = append(values, float64(share.Count))
	}

	return r.saveBarChart(OAStatusChart, barConfig{
		title:  "Works by Open Access Status",
		xLabel: "Works",
		names:  names,
		values: values,
		color:  barOrange,
	})
}

// RenderTopFields renders the work counts of the most productive fields.
func (r *Renderer) RenderTopFields(fields []domain.FieldStats) error {
	fields = topFields(fields, maxBarEntries)
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
		values = append(values, float64(f.Works))
	}

	return r.saveBarChart(TopFieldsChart, barConfig{
		title:  "Works by Knowledge Field",
		xLabel: "Works",
		names:  names,
		values: values,
		color:  barBlue,
	})
}

// RenderFieldsOAShare renders the open-access share of each field.
func (r *Renderer) RenderFieldsOAShare(fields []domain.FieldStats) error {
	fields = topFields(fields, maxBarEntries)
	if len(fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(fields))
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
		values = append(values, f.PercentageOA)
	}

	return r.saveBarChart(FieldsOAShareChart, barConfig{
		title:  "Open Access Share by Knowledge Field",
		xLabel: "% Open Access",
		names:  names,
		values: values,
		color:  barGreen,
	})
}

// RenderFieldsDistribution renders each field's share of the national
// output: the top fields individually, the tail summed into "Other".
func (r *Renderer) RenderFieldsDistribution(fields []domain.FieldStats) error {
	if len(fields) == 0 {
		return nil
	}

	names, values := distributionRows(fields, distributionTopN)

	return r.saveBarChart(FieldsDistributionChart, barConfig{
		title:  "Share of National Output by Field",
		xLabel: "% of total works",
		names:  names,
		values: values,
		color:  barBlue,
	})
}

// RenderTopAuthors renders two rankings plus a works-vs-citations scatter.
func (r *Renderer) RenderTopAuthors(authors []domain.TopAuthor) error {
	if len(authors) == 0 {
		return nil
	}

	byWorks := rankAuthors(authors, maxBarEntries, func(a domain.TopAuthor) int { return a.Works })
	names := make([]string, 0, len(byWorks))
	values := make([]float64, 0, len(byWorks))
	for _, a := range byWorks {
		names = append(names, a.Name)
		values = append(values, float64(a.Works))
	}
	if err := r.saveBarChart(AuthorsByWorksChart, barConfig{
		title:  "Most Productive Authors",
		xLabel: "Works",
		names:  names,
		values: values,
		color:  barBlue,
	}); err != nil {
		return err
	}

	byCitations := rankAuthors(authors, maxBarEntries, func(a domain.TopAuthor) int { return a.Citations })
	names = names[:0]
	values = values[:0]
	for _, a := range byCitations {
		names = append(names, a.Name)
		values = append(values, float64(a.Citations))
	}
	if err := r.saveBarChart(AuthorsByCitationsChart, barConfig{
		title:  "Most Cited Authors",
		xLabel: "Citations",
		names:  names,
		values: values,
		color:  barGreen,
	}); err != nil {
		return err
	}

	return r.renderAuthorsScatter(authors)
}

func (r *Renderer) renderAuthorsScatter(authors []domain.TopAuthor) error {
	pts := make(plotter.XYs, 0, len(authors))
	for _, a := range authors {
		pts = append(pts, plotter.XY{X: float64(a.Works), Y: float64(a.Citations)})
	}

	p := plot.New()
	p.Title.Text = "Author Productivity vs Impact"
	p.X.Label.Text = "Works"
	p.Y.Label.Text = "Citations"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("building author scatter: %w", err)
	}
	scatter.GlyphStyle.Color = barBlue
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(scatter)

	return r.save(p, AuthorsScatterChart)
}

// RenderTopInstitutions renders the institution productivity ranking.
func (r *Renderer) RenderTopInstitutions(insts []domain.TopInstitution) error {
	if len(insts) == 0 {
		return nil
	}
	if len(insts) > maxBarEntries {
		insts = insts[:maxBarEntries]
	}

	names := make([]string, 0, len(insts))
	values := make([]float64, 0, len(insts))
	for _, inst := range insts {
		names = append(names, inst.Name)
		values = append(values, float64(inst.Works))
	}

	return r.saveBarChart(TopInstitutionsChart, barConfig{
		title:  "Most Productive Institutions",
		xLabel: "Works",
		names:  names,
		values: values,
		color:  barOrange,
	})
}

// RenderCollaboration renders the top international collaborators.
func (r *Renderer) RenderCollaboration(entries []domain.CollaborationEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if len(entries) > maxBarEntries {
		entries = entries[:maxBarEntries]
	}

	names := make([]string, 0, len(entries))
	values := make([]float64, 0, len(entries))
	for _, e := range entries {
		names = append(names, fmt.Sprintf("%s (%.1f%%)", e.CountryCode, e.Percentage))
		values = append(values, float64(e.Works))
	}

	return r.saveBarChart(CollaborationChart, barConfig{
		title:  "International Collaboration by Country",
		xLabel: "Co-authored works",
		names:  names,
		values: values,
		color:  barGreen,
	})
}

type barConfig struct {
	title  string
	xLabel string
	names  []string
	values []float64
	color  color.Color
}

// saveBarChart renders a horizontal bar chart. Input order is assumed
// descending; rows are reversed so the largest bar ends up on top.
func (r *Renderer) saveBarChart(file string, cfg barConfig) error {
	names := make([]string, len(cfg.names))
	values := make(plotter.Values, len(cfg.values))
	for i := range cfg.values {
		j := len(cfg.values) - 1 - i
		names[i] = cfg.names[j]
		values[i] = cfg.values[j]
	}

	p := plot.New()
	p.Title.Text = cfg.title
	p.X.Label.Text = cfg.xLabel

	bars, err := plotter.NewBarChart(values, barWidth)
	if err != nil {
		return fmt.Errorf("building bar chart %s: %w", file, err)
	}
	bars.Horizontal = true
	bars.Color = cfg.color
	bars.LineStyle.Width = 0

	p.Add(bars)
	p.NominalY(names...)

	return r.save(p, file)
}

func (r *Renderer) save(p *plot.Plot, file string) error {
	if err := p.Save(chartWidth, chartHeight, r.Path(file)); err != nil {
		return fmt.Errorf("saving chart %s: %w", file, err)
	}
	return nil
}

// distributionRows builds the rows of the distribution chart: the n
// fields with the largest share named individually, and one "Other" row
// holding the summed share of the remaining fields.
func distributionRows(fields []domain.FieldStats, n int) ([]string, []float64) {
	sorted := topFields(fields, len(fields))

	names := make([]string, 0, n+1)
	values := make([]float64, 0, n+1)
	for i, f := range sorted {
		if i >= n {
			break
		}
		names = append(names, fmt.Sprintf("%s (%.1f%%)", f.Name, f.Percentage))
		values = append(values, f.Percentage)
	}

	if len(sorted) > n {
		var rest float64
		for _, f := range sorted[n:] {
			rest += f.Percentage
		}
		names = append(names, fmt.Sprintf("Other (%.1f%%)", rest))
		values = append(values, rest)
	}

	return names, values
}

// topFields returns the n fields with the most works, descending.
func topFields(fields []domain.FieldStats, n int) []domain.FieldStats {
	sorted := make([]domain.FieldStats, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Works > sorted[j].Works
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// rankAuthors returns the n authors with the highest key, descending.
func rankAuthors(authors []domain.TopAuthor, n int, key func(domain.TopAuthor) int) []domain.TopAuthor {
	sorted := make([]domain.TopAuthor, len(authors))
	copy(sorted, authors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return key(sorted[i]) > key(sorted[j])
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
