package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/azretail/chainscan/internal/dataset"
	"github.com/azretail/chainscan/internal/geo"
	"github.com/azretail/chainscan/internal/model"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		ChartsDir:  filepath.Join(dir, "charts"),
		ReportsDir: filepath.Join(dir, "reports"),
		Width:      6,
		Height:     4,
	}
}

func TestAnalyzer_RunWritesArtifacts(t *testing.T) {
	opts := testOptions(t)
	results, err := NewAnalyzer(opts).Run(context.Background(), sampleMarket(t))
	require.NoError(t, err)
	require.Len(t, results, len(DefaultSections()))

	for _, r := range results {
		assert.Equal(t, model.SectionComplete, r.Status, "section %s: %s", r.Name, r.Error)
		assert.NotEmpty(t, r.Insight, r.Name)
		require.NotEmpty(t, r.Artifact, r.Name)
		info, err := os.Stat(r.Artifact)
		require.NoError(t, err, r.Name)
		assert.Positive(t, info.Size(), r.Name)
	}
	assert.FileExists(t, filepath.Join(opts.ChartsDir, "market_share.png"))
	assert.FileExists(t, filepath.Join(opts.ReportsDir, InsightsFile))
	assert.Equal(t, "OBA leads with 56.3% of 16 stores", results[0].Insight)
}

func TestAnalyzer_SummaryAndGrowthSections(t *testing.T) {
	opts := testOptions(t)
	results, err := NewAnalyzer(opts).Run(context.Background(), sampleMarket(t))
	require.NoError(t, err)

	byName := make(map[string]model.SectionResult)
	for _, r := range results {
		byName[r.Name] = r
	}

	summary := byName["overall_summary"]
	require.Equal(t, model.SectionComplete, summary.Status, summary.Error)
	assert.Equal(t, "16 stores across 3 cities. OBA leads with 56% share", summary.Insight)
	assert.Equal(t, filepath.Join(opts.ChartsDir, "overall_summary.png"), summary.Artifact)

	growth := byName["growth_potential"]
	require.Equal(t, model.SectionComplete, growth.Status, growth.Error)
	assert.Contains(t, growth.Insight, "Competitive balance")
	assert.FileExists(t, filepath.Join(opts.ChartsDir, "growth_potential.png"))
}

func TestGrowthPotentialChart_BestOpportunity(t *testing.T) {
	m := mergedMarket(t,
		storesIn(model.ChainOBA, in(baku, 10), in(sumgay, 2), in(ganja, 1)),
		storesIn(model.ChainBravo, in(sumgay, 2)),
		storesIn(model.ChainAraz, in(sumgay, 2), in(ganja, 1)),
	)

	c, err := growthPotentialChart(m)
	require.NoError(t, err)
	assert.Equal(t, "Best opportunity: Bakı with 10 stores and only 1 competing chains", c.insight)
}

func TestOverallSummaryChart_Empty(t *testing.T) {
	m := mergedMarket(t)
	_, err := overallSummaryChart(m)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = growthPotentialChart(m)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestMedian(t *testing.T) {
	assert.Zero(t, median(nil))
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
}

func TestAnalyzer_SectionFailureIsolated(t *testing.T) {
	opts := testOptions(t)
	a := NewAnalyzer(opts).WithSections(
		Section{Name: "broken", Render: func(context.Context, *Market, Options) (string, string, error) {
			return "", "", errors.New("boom")
		}},
		Section{Name: "panics", Render: func(context.Context, *Market, Options) (string, string, error) {
			var cities []CityStats
			return cities[3].City, "", nil
		}},
		Section{Name: "ok", Render: func(context.Context, *Market, Options) (string, string, error) {
			return "fine", "somewhere", nil
		}},
	)

	results, err := a.Run(context.Background(), sampleMarket(t))
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, model.SectionFailed, results[0].Status)
	assert.Equal(t, "boom", results[0].Error)
	assert.Equal(t, model.SectionFailed, results[1].Status)
	assert.Contains(t, results[1].Error, "panic")
	assert.Equal(t, model.SectionComplete, results[2].Status)
	assert.Equal(t, "fine", results[2].Insight)
}

func TestAnalyzer_NoBravoFormatsFailsOnlyThatSection(t *testing.T) {
	m := mergedMarket(t, storesIn(model.ChainOBA, in(baku, 5), in(ganja, 2)))
	results, err := NewAnalyzer(testOptions(t)).Run(context.Background(), m)
	require.NoError(t, err)

	for _, r := range results {
		if r.Name == "bravo_formats" {
			assert.Equal(t, model.SectionFailed, r.Status)
			assert.Contains(t, r.Error, "no data")
			continue
		}
		assert.Equal(t, model.SectionComplete, r.Status, "section %s: %s", r.Name, r.Error)
	}
}

func TestAnalyzer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAnalyzer(testOptions(t)).Run(ctx, sampleMarket(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInsights(t *testing.T) {
	t.Parallel()

	report := Insights(sampleMarket(t))
	for _, want := range []string{
		"## Executive Summary",
		"**Market size:** 16 stores",
		"**Active chains:** 3",
		"**Geographic reach:** 3 cities",
		"**Market leader:** OBA with 56.3% of stores",
		"## Market Structure",
		"| 1 | OBA | 9 | 56.3% |",
		"**Largest market:** Bakı with 8 stores (50.0%)",
		"**Outside known cities:** 1 stores",
		"**Single-chain cities:** 1",
		"**Competitive cities (3+ chains):** 1",
		"**Most competitive:** Sumqayıt with 3 chains",
		"## Data Completeness",
		"## Strategic Recommendations",
	} {
		assert.Contains(t, report, want)
	}
	assert.Less(t, strings.Index(report, "| OBA |"), strings.Index(report, "| RAHAT |"))
}

func TestWriteWorkbook(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), WorkbookFile)
	m := sampleMarket(t)
	require.NoError(t, WriteWorkbook(path, m))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 4)

	chains := f.Sheet[SheetChains]
	require.NotNil(t, chains)
	require.Len(t, chains.Rows, 6)
	assert.Equal(t, "Chain", chains.Rows[0].Cells[0].String())
	assert.Equal(t, "BRAVO", chains.Rows[1].Cells[0].String())
	assert.Equal(t, "3", chains.Rows[1].Cells[1].String())
	assert.Equal(t, "OBA", chains.Rows[4].Cells[0].String())
	assert.Equal(t, "9", chains.Rows[4].Cells[1].String())

	cities := f.Sheet[SheetCities]
	require.NotNil(t, cities)
	require.Len(t, cities.Rows, 5)
	assert.Equal(t, "Bakı", cities.Rows[1].Cells[0].String())
	assert.Equal(t, "6250", cities.Rows[1].Cells[5].String())

	stores := f.Sheet[SheetStores]
	require.NotNil(t, stores)
	assert.Len(t, stores.Rows, 17)
	assert.Equal(t, model.ColChain, stores.Rows[0].Cells[0].String())
}

func TestStoreFeatures(t *testing.T) {
	t.Parallel()

	m := sampleMarket(t)
	data, err := json.Marshal(StoreFeatures(m))
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 16)

	first := fc.Features[0]
	assert.Equal(t, "bravo-1", first.ID)
	assert.Equal(t, "Point", first.Geometry.Type)
	require.Len(t, first.Geometry.Coordinates, 2)
	assert.InDelta(t, 49.86, first.Geometry.Coordinates[0], 1e-9)
	assert.InDelta(t, 40.40, first.Geometry.Coordinates[1], 1e-9)
	assert.Equal(t, "BRAVO", first.Properties["chain"])
	assert.Equal(t, "Hiper", first.Properties["type"])

	last := fc.Features[15]
	assert.Equal(t, "OBA", last.Properties["chain"])
	assert.Equal(t, geo.Regional, last.Properties["city"])
	_, hasPhone := last.Properties["phone"]
	assert.False(t, hasPhone, "not-collected columns are omitted")
}

func TestLoadMarket(t *testing.T) {
	t.Parallel()

	m := sampleMarket(t)
	tables := make(map[model.Chain]*dataset.Table)
	for _, c := range model.Chains() {
		var recs []model.StoreRecord
		for _, r := range m.Records {
			if r.Chain == c {
				recs = append(recs, r)
			}
		}
		tables[c] = dataset.FromRecords(c, dataset.SourceColumns([]string{model.ColName}, nil), recs)
	}
	merged, err := dataset.Merge(tables, model.Chains(), marker)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "combined.csv")
	require.NoError(t, dataset.WriteCSV(path, merged))

	loaded, err := LoadMarket(context.Background(), path, marker, geo.DefaultGazetteer())
	require.NoError(t, err)
	assert.Equal(t, m.Summary, loaded.Summary)

	_, err = LoadMarket(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), marker, nil)
	require.Error(t, err)
}
