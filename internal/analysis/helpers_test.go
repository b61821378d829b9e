package analysis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/azretail/chainscan/internal/dataset"
	"github.com/azretail/chainscan/internal/geo"
	"github.com/azretail/chainscan/internal/model"
)

const marker = model.DefaultMissingMarker

type cityCount struct {
	city string
	lat  float64
	lon  float64
	n    int
}

// storesIn builds n records for chain c in each listed city.
func storesIn(c model.Chain, cities ...cityCount) []model.StoreRecord {
	var out []model.StoreRecord
	for _, cc := range cities {
		for i := 0; i < cc.n; i++ {
			r := model.StoreRecord{
				Chain:        c,
				Seq:          len(out),
				Name:         model.Value(fmt.Sprintf("%s %s %d", c, cc.city, i)),
				Address:      model.Value(""),
				City:         cc.city,
				Latitude:     cc.lat + float64(i%10)/1000,
				Longitude:    cc.lon,
				SourceFormat: model.FormatDecimal,
			}
			if c == model.ChainBravo {
				r.Phone = model.Value("")
				if i%2 == 0 {
					r.Phone = model.Value("+994125101010")
				}
				r.Hours = model.Value("08:00-23:00")
				r.Extra = map[string]model.Field{"type": model.Value([]string{"Hiper", "Super"}[i%2])}
			}
			out = append(out, r)
		}
	}
	return out
}

// mergedMarket runs the records through per-chain tables and the merger so
// the market sees the same cells as the CLI.
func mergedMarket(t *testing.T, records ...[]model.StoreRecord) *Market {
	t.Helper()
	byChain := make(map[model.Chain][]model.StoreRecord)
	for _, rs := range records {
		for _, r := range rs {
			byChain[r.Chain] = append(byChain[r.Chain], r)
		}
	}

	tables := make(map[model.Chain]*dataset.Table)
	for _, c := range model.Chains() {
		collected := []string{model.ColName, model.ColAddress}
		var extras []string
		if c == model.ChainBravo {
			collected = append(collected, model.ColPhone, model.ColHours)
			extras = []string{"type"}
		}
		tables[c] = dataset.FromRecords(c, dataset.SourceColumns(collected, extras), byChain[c])
	}
	merged, err := dataset.Merge(tables, model.Chains(), marker)
	require.NoError(t, err)

	m, err := NewMarket(merged, marker, geo.DefaultGazetteer())
	require.NoError(t, err)
	return m
}

var (
	baku   = cityCount{city: "Bakı", lat: 40.40, lon: 49.86}
	ganja  = cityCount{city: "Gəncə", lat: 40.68, lon: 46.36}
	sumgay = cityCount{city: "Sumqayıt", lat: 40.58, lon: 49.66}
	region = cityCount{city: geo.Regional, lat: 39.50, lon: 47.00}
)

func in(c cityCount, n int) cityCount {
	c.n = n
	return c
}

// sampleMarket has three chains over three real cities plus one regional store.
func sampleMarket(t *testing.T) *Market {
	t.Helper()
	return mergedMarket(t,
		storesIn(model.ChainOBA, in(baku, 6), in(sumgay, 2), in(region, 1)),
		storesIn(model.ChainBravo, in(baku, 2), in(sumgay, 1)),
		storesIn(model.ChainAraz, in(ganja, 3), in(sumgay, 1)),
	)
}
