package extract

import (
	"context"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/azretail/chainscan/internal/fetcher"
	"github.com/azretail/chainscan/internal/model"
)

// Bravo store formats.
var bravoFormats = []string{"Hiper", "Super", "Market", "Ekspres", "Premium"}

// bravoCategories maps data-category ids to formats for articles that do not
// print the format.
var bravoCategories = map[string]string{
	"2237": "Hiper",
	"2236": "Super",
	"2235": "Market",
	"2238": "Ekspres",
}

// Bravo reads bravosupermarket.az branch articles.
type Bravo struct {
	url string
}

// NewBravo creates the BRAVO extractor.
func NewBravo(url string) *Bravo { return &Bravo{url: url} }

func (b *Bravo) Chain() model.Chain { return model.ChainBravo }
func (b *Bravo) URL() string        { return b.url }
func (b *Bravo) Fields() []string {
	return []string{model.ColName, model.ColAddress, model.ColPhone, model.ColHours}
}
func (b *Bravo) Extras() []string { return []string{"type", "category_id", "google_maps_url"} }

// Extract implements Extractor. The Google Maps link is kept as a fallback
// coordinate for articles whose data attributes are empty or zero.
func (b *Bravo) Extract(ctx context.Context, f fetcher.Fetcher) (*Result, error) {
	doc, err := fetchDocument(ctx, f, b.url)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	doc.Find("article[data-lat][data-lng]").Each(func(i int, s *goquery.Selection) {
		name := text(s, "h3")
		var format, address, phone, hours string
		s.Find("li").Each(func(_ int, li *goquery.Selection) {
			span := li.Find("span").First()
			if span.Length() == 0 {
				return
			}
			v := strings.TrimSpace(span.Text())
			switch {
			case li.HasClass("location"):
				if format == "" && slices.Contains(bravoFormats, v) {
					format = v
				} else {
					address = v
				}
			case li.HasClass("phone"):
				phone = v
			case li.HasClass("time"):
				hours = v
			}
		})

		category, _ := s.Attr("data-category")
		if format == "" {
			format = bravoCategories[category]
		}
		lat, _ := s.Attr("data-lat")
		lng, _ := s.Attr("data-lng")
		mapsURL, _ := s.Find("a.google-maps-link").First().Attr("href")
		if name == "" && strings.TrimSpace(lat+lng+mapsURL) == "" {
			res.fail(i, "bravo: article %d has no heading or location", i)
			return
		}

		res.add(model.RawRecord{
			Chain:   model.ChainBravo,
			Name:    model.Value(name),
			Address: model.Value(address),
			Phone:   model.Value(phone),
			Hours:   model.Value(hours),
			Coordinate: model.RawCoordinate{
				Lat:  lat,
				Lon:  lng,
				Link: strings.TrimSpace(mapsURL),
			},
			Extra: map[string]model.Field{
				"type":            model.Value(format),
				"category_id":     model.Value(category),
				"google_maps_url": model.Value(mapsURL),
			},
		})
	})
	return res, nil
}
