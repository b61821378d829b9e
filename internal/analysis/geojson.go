package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/azretail/chainscan/internal/coords"
)

// GeoJSONFile is the store layer's file name inside the reports dir.
const GeoJSONFile = "stores.geojson"

func renderGeoJSON(_ context.Context, m *Market, o Options) (string, string, error) {
	if len(m.Records) == 0 {
		return "", "", ErrNoData
	}
	fc := StoreFeatures(m)
	data, err := json.Marshal(fc)
	if err != nil {
		return "", "", eris.Wrap(err, "analysis: marshal geojson")
	}
	path := filepath.Join(o.ReportsDir, GeoJSONFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", eris.Wrapf(err, "analysis: write %s", path)
	}
	return fmt.Sprintf("%d store features", len(fc.Features)), path, nil
}

// StoreFeatures returns one point feature per store. Properties carry the
// chain, city, source format and every collected text column.
func StoreFeatures(m *Market) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(m.Records))}
	for i, r := range m.Records {
		props := map[string]interface{}{
			"chain":         string(r.Chain),
			"city":          r.City,
			"source_format": string(r.SourceFormat),
		}
		for _, col := range m.Optional {
			if f := r.FieldByColumn(col); f.Collected() {
				props[col] = f.String()
			}
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         fmt.Sprintf("%s-%d", r.Chain.Slug(), i+1),
			Geometry:   coords.Point{Lat: r.Latitude, Lon: r.Longitude}.Geom(),
			Properties: props,
		})
	}
	return fc
}
