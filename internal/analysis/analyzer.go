package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/azretail/chainscan/internal/model"
)

// ErrNoData is returned by a section that has nothing to draw.
var ErrNoData = eris.New("analysis: no data for section")

// Options controls where artifacts go and how big charts are.
type Options struct {
	ChartsDir  string  `mapstructure:"charts_dir"`
	ReportsDir string  `mapstructure:"reports_dir"`
	Width      float64 `mapstructure:"width"`  // inches
	Height     float64 `mapstructure:"height"` // inches
}

func (o Options) withDefaults() Options {
	if o.ChartsDir == "" {
		o.ChartsDir = "charts"
	}
	if o.ReportsDir == "" {
		o.ReportsDir = "reports"
	}
	if o.Width <= 0 {
		o.Width = 10
	}
	if o.Height <= 0 {
		o.Height = 6
	}
	return o
}

// Section renders one artifact. It returns a one-line insight for the run
// summary and the path it wrote.
type Section struct {
	Name   string
	Render func(ctx context.Context, m *Market, o Options) (insight, artifact string, err error)
}

// Analyzer renders every section over a market.
type Analyzer struct {
	opts     Options
	sections []Section
}

// NewAnalyzer returns an analyzer with the default section list.
func NewAnalyzer(opts Options) *Analyzer {
	return &Analyzer{opts: opts.withDefaults(), sections: DefaultSections()}
}

// WithSections replaces the section list.
func (a *Analyzer) WithSections(sections ...Section) *Analyzer {
	a.sections = sections
	return a
}

// DefaultSections lists the charts followed by the text and data artifacts.
func DefaultSections() []Section {
	return []Section{
		chartSection("market_share", marketShareChart),
		chartSection("geographic", geographicChart),
		chartSection("hhi", hhiChart),
		chartSection("top_cities", topCitiesChart),
		chartSection("chain_by_city", chainByCityChart),
		chartSection("competitive_intensity", intensityChart),
		chartSection("market_opportunity", opportunityChart),
		chartSection("chain_comparison", chainComparisonChart),
		chartSection("regional_distribution", regionalChart),
		chartSection("data_completeness", completenessChart),
		chartSection("latitude_distribution", latitudeChart),
		chartSection("saturation", saturationChart),
		chartSection("bravo_formats", bravoFormatsChart),
		chartSection("territory", territoryChart),
		chartSection("store_map", storeMapChart),
		chartSection("overall_summary", overallSummaryChart),
		chartSection("growth_potential", growthPotentialChart),
		{Name: "insights", Render: renderInsights},
		{Name: "workbook", Render: renderWorkbook},
		{Name: "geojson", Render: renderGeoJSON},
	}
}

// Run renders every section. A failing section is recorded and the rest
// still run; only a cancelled context or unwritable output directory stops
// the run.
func (a *Analyzer) Run(ctx context.Context, m *Market) ([]model.SectionResult, error) {
	log := zap.L().With(zap.String("component", "analysis"))

	for _, dir := range []string{a.opts.ChartsDir, a.opts.ReportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "analysis: create %s", dir)
		}
	}

	results := make([]model.SectionResult, 0, len(a.sections))
	for _, s := range a.sections {
		if err := ctx.Err(); err != nil {
			return results, eris.Wrap(err, "analysis: cancelled")
		}
		res := a.runSection(ctx, s, m)
		if res.Status == model.SectionFailed {
			log.Warn("analysis: section failed",
				zap.String("section", res.Name),
				zap.String("error", res.Error),
			)
		} else {
			log.Info("analysis: section complete",
				zap.String("section", res.Name),
				zap.String("artifact", res.Artifact),
				zap.Int64("duration_ms", res.Duration),
			)
		}
		results = append(results, res)
	}
	return results, nil
}

func (a *Analyzer) runSection(ctx context.Context, s Section, m *Market) (res model.SectionResult) {
	res.Name = s.Name
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res.Status = model.SectionFailed
			res.Error = fmt.Sprintf("panic: %v", r)
			res.Artifact = ""
		}
		res.Duration = time.Since(start).Milliseconds()
	}()

	insight, artifact, err := s.Render(ctx, m, a.opts)
	if err != nil {
		res.Status = model.SectionFailed
		res.Error = err.Error()
		return res
	}
	res.Status = model.SectionComplete
	res.Insight = insight
	res.Artifact = artifact
	return res
}

// chartSection wraps a chart builder so it writes charts/<name>.png.
func chartSection(name string, build func(m *Market) (chart, error)) Section {
	return Section{
		Name: name,
		Render: func(_ context.Context, m *Market, o Options) (string, string, error) {
			c, err := build(m)
			if err != nil {
				return "", "", eris.Wrapf(err, "analysis: build %s", name)
			}
			path := filepath.Join(o.ChartsDir, name+".png")
			if err := c.save(path, o.Width, o.Height); err != nil {
				return "", "", eris.Wrapf(err, "analysis: save %s", path)
			}
			return c.insight, path, nil
		},
	}
}
