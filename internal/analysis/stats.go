// Package analysis computes market statistics over the merged store table and
// renders them as charts, a narrative report, a workbook and a map layer.
package analysis

import (
	"math"
	"sort"

	"github.com/azretail/chainscan/internal/geo"
	"github.com/azretail/chainscan/internal/model"
)

// Concentration thresholds on the 0..10000 HHI scale.
const (
	HHIModerate = 2500
	HHIHigh     = 5000
	HHIMonopoly = 10000
)

// Completeness is how much of one column a chain filled.
type Completeness struct {
	Collected float64 // percent of records whose value is not the missing marker
	Filled    float64 // percent of records with a non-empty value
}

// ChainStats summarizes one chain.
type ChainStats struct {
	Chain         model.Chain
	Stores        int
	Share         float64 // percent of all stores, one decimal
	Cities        int     // distinct real cities
	StoresPerCity float64
	Completeness  map[string]Completeness
}

// CityStats summarizes one city.
type CityStats struct {
	City          string
	Pseudo        bool // Regional or Unknown
	Stores        int
	ByChain       map[model.Chain]int
	Chains        int
	Dominant      model.Chain
	DominantShare float64 // percent
	MeanLat       float64
	MeanLon       float64
	HHI           int
	Population    float64 // thousands, 0 when unknown
}

// Intensity is stores per squared chain count; high values mean few chains
// share many stores.
func (c CityStats) Intensity() float64 {
	if c.Chains == 0 {
		return 0
	}
	return float64(c.Stores) / float64(c.Chains*c.Chains)
}

// Opportunity scores cities with many stores and few chains above zero.
func (c CityStats) Opportunity() float64 {
	return float64(c.Stores)/100 - float64(c.Chains)
}

// PerTenThousand is stores per 10,000 residents, or 0 without a population.
func (c CityStats) PerTenThousand() float64 {
	if c.Population <= 0 {
		return 0
	}
	return float64(c.Stores) / c.Population * 10
}

// Share returns n as a percentage of total rounded to one decimal. A zero
// total yields zero.
func Share(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(n) * 100 / float64(total))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// HHI is the Herfindahl-Hirschman index of the given store counts on a
// 0..10000 scale. It is computed in integers, so a single chain scores
// exactly 10000 and n equal chains score 10000/n.
func HHI(counts map[model.Chain]int) int {
	var total, sumSq int64
	for _, n := range counts {
		total += int64(n)
		sumSq += int64(n) * int64(n)
	}
	if total == 0 {
		return 0
	}
	return int(sumSq * HHIMonopoly / (total * total))
}

// ComputeChainStats reports every chain in order, including chains with no
// stores. optional lists the columns completeness is measured on.
func ComputeChainStats(records []model.StoreRecord, order []model.Chain, optional []string) []ChainStats {
	byChain := make(map[model.Chain][]model.StoreRecord)
	for _, r := range records {
		byChain[r.Chain] = append(byChain[r.Chain], r)
	}

	out := make([]ChainStats, 0, len(order))
	for _, c := range order {
		recs := byChain[c]
		cs := ChainStats{
			Chain:        c,
			Stores:       len(recs),
			Share:        Share(len(recs), len(records)),
			Completeness: make(map[string]Completeness, len(optional)),
		}

		cities := make(map[string]bool)
		for _, r := range recs {
			if !geo.IsPseudo(r.City) {
				cities[r.City] = true
			}
		}
		cs.Cities = len(cities)
		if cs.Cities > 0 {
			cs.StoresPerCity = float64(cs.Stores) / float64(cs.Cities)
		}

		for _, col := range optional {
			var collected, filled int
			for _, r := range recs {
				f := r.FieldByColumn(col)
				if f.Collected() {
					collected++
				}
				if f.Filled() {
					filled++
				}
			}
			cs.Completeness[col] = Completeness{
				Collected: Share(collected, len(recs)),
				Filled:    Share(filled, len(recs)),
			}
		}
		out = append(out, cs)
	}
	return out
}

// ComputeCityStats groups records by city. Cities are sorted by store count,
// then name. Only cities with stores appear.
func ComputeCityStats(records []model.StoreRecord, g *geo.Gazetteer) []CityStats {
	type acc struct {
		counts map[model.Chain]int
		n      int
		sumLat float64
		sumLon float64
	}
	groups := make(map[string]*acc)
	for _, r := range records {
		a, ok := groups[r.City]
		if !ok {
			a = &acc{counts: make(map[model.Chain]int)}
			groups[r.City] = a
		}
		a.n++
		a.counts[r.Chain]++
		a.sumLat += r.Latitude
		a.sumLon += r.Longitude
	}

	out := make([]CityStats, 0, len(groups))
	for city, a := range groups {
		cs := CityStats{
			City:    city,
			Pseudo:  geo.IsPseudo(city),
			Stores:  a.n,
			ByChain: a.counts,
			Chains:  len(a.counts),
			MeanLat: a.sumLat / float64(a.n),
			MeanLon: a.sumLon / float64(a.n),
			HHI:     HHI(a.counts),
		}
		if g != nil {
			cs.Population = g.Population(city)
		}
		cs.Dominant, cs.DominantShare = dominant(a.counts, a.n)
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stores != out[j].Stores {
			return out[i].Stores > out[j].Stores
		}
		return out[i].City < out[j].City
	})
	return out
}

// dominant returns the chain with the most stores; ties go to the chain
// earlier in merge priority.
func dominant(counts map[model.Chain]int, total int) (model.Chain, float64) {
	var best model.Chain
	bestN := 0
	for _, c := range model.Chains() {
		if n := counts[c]; n > bestN {
			best, bestN = c, n
		}
	}
	if total == 0 {
		return best, 0
	}
	return best, float64(bestN) * 100 / float64(total)
}

// Ranked returns the top n real cities; n <= 0 returns all of them.
func Ranked(cities []CityStats, n int) []CityStats {
	var out []CityStats
	for _, c := range cities {
		if c.Pseudo {
			continue
		}
		out = append(out, c)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}

// Summary is the headline view of the market.
type Summary struct {
	Stores          int
	ActiveChains    int
	Leader          model.Chain
	LeaderShare     float64
	Cities          int // distinct real cities
	StoresPerCity   float64
	Monopolies      int // real cities served by a single chain
	Competitive     int // real cities served by three or more chains
	MostCompetitive string
	MostChains      int
}

// Summarize derives the headline numbers from chain and city stats.
func Summarize(chains []ChainStats, cities []CityStats) Summary {
	var s Summary
	for _, c := range chains {
		s.Stores += c.Stores
		if c.Stores > 0 {
			s.ActiveChains++
		}
		if c.Stores > 0 && c.Stores > storesOf(chains, s.Leader) {
			s.Leader = c.Chain
		}
	}
	s.LeaderShare = Share(storesOf(chains, s.Leader), s.Stores)

	for _, c := range Ranked(cities, 0) {
		s.Cities++
		switch {
		case c.Chains == 1:
			s.Monopolies++
		case c.Chains >= 3:
			s.Competitive++
		}
		if c.Chains > s.MostChains {
			s.MostChains = c.Chains
			s.MostCompetitive = c.City
		}
	}
	if s.Cities > 0 {
		s.StoresPerCity = float64(s.Stores) / float64(s.Cities)
	}
	return s
}

func storesOf(chains []ChainStats, c model.Chain) int {
	for _, cs := range chains {
		if cs.Chain == c {
			return cs.Stores
		}
	}
	return 0
}
