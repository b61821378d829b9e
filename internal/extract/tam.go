package extract

import (
	"context"

	"github.com/azretail/chainscan/internal/fetcher"
	"github.com/azretail/chainscan/internal/model"
)

// tamWrappers are keys the branch API has used to wrap its list.
var tamWrappers = []string{"data", "branches", "stores", "locations", "items"}

// Tam reads the tamstore.az branch API.
type Tam struct {
	url string
}

// NewTam creates the TAM extractor.
func NewTam(url string) *Tam { return &Tam{url: url} }

func (t *Tam) Chain() model.Chain { return model.ChainTam }
func (t *Tam) URL() string        { return t.url }
func (t *Tam) Fields() []string {
	return []string{model.ColName, model.ColAddress, model.ColPhone, model.ColHours}
}
func (t *Tam) Extras() []string { return nil }

// Extract implements Extractor. Field names vary between API versions, so
// each field is read from the first of several keys that is present.
func (t *Tam) Extract(ctx context.Context, f fetcher.Fetcher) (*Result, error) {
	var doc any
	if err := f.GetJSON(ctx, t.url, &doc); err != nil {
		return nil, err
	}

	res := &Result{}
	for i, item := range listOf(doc, tamWrappers...) {
		branch, ok := item.(map[string]any)
		if !ok {
			res.fail(i, "tam: item %d is not an object", i)
			continue
		}
		res.add(branchRecord(model.ChainTam, branch))
	}
	return res, nil
}

// branchRecord reads a JSON branch object using the key spellings seen
// across the chains' APIs.
func branchRecord(chain model.Chain, b map[string]any) model.RawRecord {
	get := func(keys ...string) model.Field {
		v, _ := pick(b, keys...)
		return model.Value(v)
	}
	lat, _ := pick(b, "latitude", "lat")
	lon, _ := pick(b, "longitude", "lng", "lon")
	return model.RawRecord{
		Chain:      chain,
		Name:       get("name", "title", "branch_name"),
		Address:    get("address", "location", "full_address"),
		Phone:      get("phone", "phone_number", "tel"),
		Hours:      get("hours", "working_hours", "workingHours", "work_time"),
		Coordinate: model.RawCoordinate{Lat: lat, Lon: lon},
	}
}
