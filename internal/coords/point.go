// Package coords turns the coordinate evidence found on store-locator pages
// into validated decimal degrees.
package coords

import (
	"fmt"

	"github.com/twpayne/go-geom"
)

// Point is a WGS84 location in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

// Geom returns p as a go-geom point with SRID 4326.
func (p Point) Geom() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}).SetSRID(4326)
}

// Envelope is a lat/lon bounding box, inclusive on every edge.
type Envelope struct {
	bounds *geom.Bounds
}

// NewEnvelope builds an envelope from its corner values.
func NewEnvelope(minLat, maxLat, minLon, maxLon float64) Envelope {
	return Envelope{bounds: geom.NewBounds(geom.XY).Set(minLon, minLat, maxLon, maxLat)}
}

// Azerbaijan is the country envelope every stored coordinate must fall in.
func Azerbaijan() Envelope {
	return NewEnvelope(38, 42, 44, 51)
}

// Contains reports whether p lies inside the envelope.
func (e Envelope) Contains(p Point) bool {
	return e.bounds.OverlapsPoint(geom.XY, geom.Coord{p.Lon, p.Lat})
}

func (e Envelope) String() string {
	return fmt.Sprintf("lat [%g,%g] lon [%g,%g]",
		e.bounds.Min(1), e.bounds.Max(1), e.bounds.Min(0), e.bounds.Max(0))
}
