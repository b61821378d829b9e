package analysis

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/azretail/chainscan/internal/dataset"
	"github.com/azretail/chainscan/internal/geo"
	"github.com/azretail/chainscan/internal/model"
)

// Market is the merged dataset plus the statistics every section reads.
type Market struct {
	Records  []model.StoreRecord
	Columns  []string
	Optional []string // columns completeness is measured on
	Chains   []ChainStats
	Cities   []CityStats
	Summary  Summary
}

// NewMarket computes statistics over a merged table. Cells equal to marker
// are treated as not collected.
func NewMarket(t *dataset.Table, marker string, g *geo.Gazetteer) (*Market, error) {
	records, err := t.Records(marker)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: parse merged table")
	}
	m := &Market{
		Records:  records,
		Columns:  t.Columns,
		Optional: optionalColumns(t.Columns),
		Cities:   ComputeCityStats(records, g),
	}
	m.Chains = ComputeChainStats(records, model.Chains(), m.Optional)
	m.Summary = Summarize(m.Chains, m.Cities)
	return m, nil
}

// LoadMarket reads the merged CSV at path.
func LoadMarket(ctx context.Context, path, marker string, g *geo.Gazetteer) (*Market, error) {
	t, err := dataset.ReadCSV(ctx, path, "")
	if err != nil {
		return nil, err
	}
	return NewMarket(t, marker, g)
}

func optionalColumns(cols []string) []string {
	var out []string
	for _, c := range cols {
		switch c {
		case model.ColChain, model.ColCity, model.ColLatitude, model.ColLongitude, model.ColSourceFormat:
			continue
		}
		out = append(out, c)
	}
	return out
}

// Chain returns the stats for c.
func (m *Market) Chain(c model.Chain) ChainStats {
	for _, cs := range m.Chains {
		if cs.Chain == c {
			return cs
		}
	}
	return ChainStats{Chain: c}
}

// ActiveChains lists the chains with at least one store, in priority order.
func (m *Market) ActiveChains() []model.Chain {
	var out []model.Chain
	for _, cs := range m.Chains {
		if cs.Stores > 0 {
			out = append(out, cs.Chain)
		}
	}
	return out
}
