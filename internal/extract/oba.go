package extract

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/azretail/chainscan/internal/fetcher"
	"github.com/azretail/chainscan/internal/model"
)

// OBA reads oba.az, where every branch is a div carrying data-lat and
// data-lng attributes.
type OBA struct {
	url string
}

// NewOBA creates the OBA extractor.
func NewOBA(url string) *OBA { return &OBA{url: url} }

func (o *OBA) Chain() model.Chain { return model.ChainOBA }
func (o *OBA) URL() string        { return o.url }
func (o *OBA) Fields() []string   { return []string{model.ColName, model.ColAddress} }
func (o *OBA) Extras() []string   { return nil }

// Extract implements Extractor.
func (o *OBA) Extract(ctx context.Context, f fetcher.Fetcher) (*Result, error) {
	doc, err := fetchDocument(ctx, f, o.url)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	doc.Find("div.js-map-coordinates").Each(func(i int, s *goquery.Selection) {
		name := text(s, "h3.fs-16")
		address := text(s, "p.color-gray")
		// the site repeats the name when a branch has no address
		if address == name {
			address = ""
		}
		lat, _ := s.Attr("data-lat")
		lng, _ := s.Attr("data-lng")
		if name == "" && lat == "" && lng == "" {
			res.fail(i, "oba: branch %d has no name or coordinates", i)
			return
		}
		res.add(model.RawRecord{
			Chain:      model.ChainOBA,
			Name:       model.Value(name),
			Address:    model.Value(address),
			Coordinate: model.RawCoordinate{Lat: lat, Lon: lng},
		})
	})
	return res, nil
}
