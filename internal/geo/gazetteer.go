// Package geo assigns stores to cities, from address text when it names a
// place and from coordinates otherwise.
package geo

import (
	_ "embed"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/azretail/chainscan/internal/coords"
)

// Pseudo-cities returned when no real city can be inferred.
const (
	Regional = "Regional"
	Unknown  = "Unknown"
)

//go:embed cities.yaml
var defaultGazetteer []byte

// City is a known city centre.
type City struct {
	Name       string  `yaml:"name"`
	Lat        float64 `yaml:"lat"`
	Lon        float64 `yaml:"lon"`
	Population float64 `yaml:"population"` // thousands; 0 when unknown
}

// Box is a lat/lon rectangle, exclusive on every edge.
type Box struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLon float64 `yaml:"min_lon"`
	MaxLon float64 `yaml:"max_lon"`
}

// Contains reports whether p is strictly inside the box.
func (b Box) Contains(p coords.Point) bool {
	return p.Lat > b.MinLat && p.Lat < b.MaxLat && p.Lon > b.MinLon && p.Lon < b.MaxLon
}

// Gazetteer is the reference data city inference runs against.
type Gazetteer struct {
	Cities              []City             `yaml:"cities"`
	AddressCities       []string           `yaml:"address_cities"`
	Populations         map[string]float64 `yaml:"populations"`
	Capital             string             `yaml:"capital"`
	CapitalDistricts    []string           `yaml:"capital_districts"`
	SettlementStopwords []string           `yaml:"settlement_stopwords"`
	CapitalKeywords     []string           `yaml:"capital_keywords"`
	CapitalBox          Box                `yaml:"capital_box"`
	NearestMaxDegrees   float64            `yaml:"nearest_max_degrees"`
}

// DefaultGazetteer returns the built-in Azerbaijan gazetteer.
func DefaultGazetteer() *Gazetteer {
	g, err := ParseGazetteer(defaultGazetteer)
	if err != nil {
		panic(err)
	}
	return g
}

// ParseGazetteer decodes a YAML gazetteer.
func ParseGazetteer(data []byte) (*Gazetteer, error) {
	var g Gazetteer
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, eris.Wrap(err, "geo: parse gazetteer")
	}
	if len(g.Cities) == 0 {
		return nil, eris.New("geo: gazetteer has no cities")
	}
	if g.Capital == "" {
		g.Capital = g.Cities[0].Name
	}
	if g.NearestMaxDegrees <= 0 {
		g.NearestMaxDegrees = 0.5
	}
	return &g, nil
}

// Population returns the population estimate in thousands, or 0 if unknown.
func (g *Gazetteer) Population(city string) float64 {
	for _, c := range g.Cities {
		if c.Name == city && c.Population > 0 {
			return c.Population
		}
	}
	return g.Populations[city]
}

// PopulatedCities lists every city with a population estimate, sorted by name.
func (g *Gazetteer) PopulatedCities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range g.Cities {
		if c.Population > 0 && !seen[c.Name] {
			seen[c.Name] = true
			out = append(out, c.Name)
		}
	}
	for name := range g.Populations {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// IsPseudo reports whether city is one of the placeholder values.
func IsPseudo(city string) bool {
	return city == "" || city == Regional || city == Unknown
}
