package geo

import (
	"math"

	"github.com/azretail/chainscan/internal/coords"
)

// Nearest returns the closest known city centre by planar degree distance
// and that distance.
func (g *Gazetteer) Nearest(p coords.Point) (City, float64) {
	best, bestDist := g.Cities[0], math.Inf(1)
	for _, c := range g.Cities {
		d := math.Hypot(p.Lat-c.Lat, p.Lon-c.Lon)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

// CityAt classifies a coordinate: the nearest known city when one is within
// NearestMaxDegrees, the capital inside its metropolitan box, Regional otherwise.
func (g *Gazetteer) CityAt(p coords.Point) string {
	c, d := g.Nearest(p)
	if d <= g.NearestMaxDegrees {
		return c.Name
	}
	if g.CapitalBox.Contains(p) {
		return g.Capital
	}
	return Regional
}
