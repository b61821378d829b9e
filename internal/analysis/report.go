package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
)

// InsightsFile is the narrative report's file name inside the reports dir.
const InsightsFile = "insights.md"

func renderInsights(_ context.Context, m *Market, o Options) (string, string, error) {
	if m.Summary.Stores == 0 {
		return "", "", ErrNoData
	}
	path := filepath.Join(o.ReportsDir, InsightsFile)
	if err := os.WriteFile(path, []byte(Insights(m)), 0o644); err != nil {
		return "", "", eris.Wrapf(err, "analysis: write %s", path)
	}
	return fmt.Sprintf("%d stores across %d cities", m.Summary.Stores, m.Summary.Cities), path, nil
}

// Insights renders the narrative market report as Markdown. Every figure is
// computed from m.
func Insights(m *Market) string {
	s := m.Summary
	var b strings.Builder

	b.WriteString("# Azerbaijan Retail Market Insights\n\n")

	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&b, "- **Market size:** %d stores\n", s.Stores)
	fmt.Fprintf(&b, "- **Active chains:** %d\n", s.ActiveChains)
	fmt.Fprintf(&b, "- **Geographic reach:** %d cities (%.1f stores per city)\n", s.Cities, s.StoresPerCity)
	fmt.Fprintf(&b, "- **Market leader:** %s with %.1f%% of stores\n\n", s.Leader, s.LeaderShare)

	b.WriteString("## Market Structure\n\n")
	chains := append([]ChainStats(nil), m.Chains...)
	sort.SliceStable(chains, func(i, j int) bool { return chains[i].Stores > chains[j].Stores })
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Rank", "Chain", "Stores", "Share", "Cities", "Stores per city"})
	for i, cs := range chains {
		t.AppendRow(table.Row{i + 1, cs.Chain, cs.Stores, pct(cs.Share), cs.Cities, fmt.Sprintf("%.1f", cs.StoresPerCity)})
	}
	b.WriteString(t.RenderMarkdown())
	b.WriteString("\n\n")

	b.WriteString("## Geographic Patterns\n\n")
	ranked := Ranked(m.Cities, 0)
	if len(ranked) > 0 {
		top := ranked[0]
		fmt.Fprintf(&b, "- **Largest market:** %s with %d stores (%.1f%%)\n",
			top.City, top.Stores, Share(top.Stores, s.Stores))
		top5 := 0
		for _, c := range Ranked(m.Cities, 5) {
			top5 += c.Stores
		}
		fmt.Fprintf(&b, "- **Top 5 cities:** %.1f%% of all stores\n", Share(top5, s.Stores))
	}
	fmt.Fprintf(&b, "- **Distinct markets:** %d cities\n", s.Cities)
	if regional := s.Stores - sumStores(ranked); regional > 0 {
		fmt.Fprintf(&b, "- **Outside known cities:** %d stores\n", regional)
	}
	b.WriteString("\n")

	t = table.NewWriter()
	t.AppendHeader(table.Row{"City", "Stores", "Chains", "Dominant", "Dominant share", "HHI"})
	for _, c := range Ranked(m.Cities, 10) {
		t.AppendRow(table.Row{c.City, c.Stores, c.Chains, c.Dominant, pct(round1(c.DominantShare)), c.HHI})
	}
	b.WriteString(t.RenderMarkdown())
	b.WriteString("\n\n")

	b.WriteString("## Competitive Landscape\n\n")
	fmt.Fprintf(&b, "- **Single-chain cities:** %d\n", s.Monopolies)
	fmt.Fprintf(&b, "- **Competitive cities (3+ chains):** %d\n", s.Competitive)
	if s.MostCompetitive != "" {
		fmt.Fprintf(&b, "- **Most competitive:** %s with %d chains\n", s.MostCompetitive, s.MostChains)
	}
	fmt.Fprintf(&b, "- **Highly concentrated cities (HHI >= %d):** %d\n\n", HHIHigh, countCities(ranked, func(c CityStats) bool {
		return c.HHI >= HHIHigh
	}))

	if len(m.Optional) > 0 {
		b.WriteString("## Data Completeness\n\n")
		t = table.NewWriter()
		header := table.Row{"Chain"}
		for _, col := range m.Optional {
			header = append(header, col)
		}
		t.AppendHeader(header)
		for _, cs := range m.Chains {
			if cs.Stores == 0 {
				continue
			}
			row := table.Row{cs.Chain}
			for _, col := range m.Optional {
				c := cs.Completeness[col]
				row = append(row, fmt.Sprintf("%s / %s", pct(c.Collected), pct(c.Filled)))
			}
			t.AppendRow(row)
		}
		b.WriteString(t.RenderMarkdown())
		b.WriteString("\n\nCells show collected / filled.\n\n")
	}

	b.WriteString("## Strategic Recommendations\n\n")
	for i, r := range recommendations(m) {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	return b.String()
}

func recommendations(m *Market) []string {
	s := m.Summary
	var out []string
	if s.Leader != "" {
		out = append(out, fmt.Sprintf("%s holds %.1f%% of stores; challengers compete on format and location rather than footprint.",
			s.Leader, s.LeaderShare))
	}

	ranked := Ranked(m.Cities, 0)
	var best *CityStats
	for i, c := range ranked {
		if c.Opportunity() > 0 && (best == nil || c.Opportunity() > best.Opportunity()) {
			best = &ranked[i]
		}
	}
	if best != nil {
		out = append(out, fmt.Sprintf("%s has %d stores shared by only %d chains; it is the strongest entry market.",
			best.City, best.Stores, best.Chains))
	}

	var under *CityStats
	for i, c := range ranked {
		if c.Population > 0 && (under == nil || c.PerTenThousand() < under.PerTenThousand()) {
			under = &ranked[i]
		}
	}
	if under != nil {
		out = append(out, fmt.Sprintf("%s has %.2f stores per 10k residents, the lowest density among cities with population data.",
			under.City, under.PerTenThousand()))
	}

	if s.Monopolies > 0 {
		out = append(out, fmt.Sprintf("%d cities are served by a single chain and carry no direct competition.", s.Monopolies))
	}
	if len(out) == 0 {
		out = append(out, "Not enough data for recommendations.")
	}
	return out
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func sumStores(cities []CityStats) int {
	n := 0
	for _, c := range cities {
		n += c.Stores
	}
	return n
}

func countCities(cities []CityStats, keep func(CityStats) bool) int {
	n := 0
	for _, c := range cities {
		if keep(c) {
			n++
		}
	}
	return n
}
