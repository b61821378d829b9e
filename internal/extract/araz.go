package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/azretail/chainscan/internal/fetcher"
	"github.com/azretail/chainscan/internal/model"
)

const nextPush = "self.__next_f.push("

// arazPageKeys are the pageProps keys the store list has lived under.
var arazPageKeys = []string{"stores", "branches", "locations", "data", "storesList"}

// Araz reads arazmarket.az, a Next.js site that streams its store list as
// JSON embedded in self.__next_f.push(...) calls.
type Araz struct {
	url string
}

// NewAraz creates the ARAZ extractor.
func NewAraz(url string) *Araz { return &Araz{url: url} }

func (a *Araz) Chain() model.Chain { return model.ChainAraz }
func (a *Araz) URL() string        { return a.url }
func (a *Araz) Fields() []string {
	return []string{model.ColName, model.ColAddress, model.ColPhone, model.ColHours}
}
func (a *Araz) Extras() []string { return nil }

type arazStore struct {
	Title    *string    `json:"title"`
	Address  string     `json:"address"`
	WorkTime string     `json:"work_time"`
	Phone    string     `json:"phone_number"`
	Lat      flexString `json:"lat"`
	Lon      flexString `json:"lon"`
}

// flexString accepts a JSON string, number or null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexString(stringify(v))
	return nil
}

// Extract implements Extractor. The streamed payload is read first; pages
// rendered the older way fall back to the __NEXT_DATA__ script. A store
// listed twice with the same name and address is kept once.
func (a *Araz) Extract(ctx context.Context, f fetcher.Fetcher) (*Result, error) {
	body, err := f.Download(ctx, a.url)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: parse html from %s", a.url)
	}

	var payloads []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		payloads = append(payloads, streamedChunks(s.Text())...)
	})

	res := &Result{}
	seen := make(map[[2]string]bool)
	index := 0
	for _, p := range payloads {
		if !strings.Contains(p, `"title"`) || !strings.Contains(p, `"address"`) || !strings.Contains(p, `"phone_number"`) {
			continue
		}
		for _, obj := range objectsWithID(p) {
			var st arazStore
			if err := json.Unmarshal([]byte(obj), &st); err != nil {
				res.fail(index, "araz: store object %d: %v", index, err)
				index++
				continue
			}
			if st.Title == nil || !isArazStore(obj) {
				// some other entity with an id, such as a nested city
				continue
			}
			index++
			key := [2]string{strings.TrimSpace(*st.Title), strings.TrimSpace(st.Address)}
			if seen[key] {
				continue
			}
			seen[key] = true
			res.add(model.RawRecord{
				Chain:      model.ChainAraz,
				Name:       model.Value(*st.Title),
				Address:    model.Value(st.Address),
				Phone:      model.Value(st.Phone),
				Hours:      model.Value(st.WorkTime),
				Coordinate: model.RawCoordinate{Lat: string(st.Lat), Lon: string(st.Lon)},
			})
		}
	}
	if len(res.Records) > 0 || len(res.Failures) > 0 {
		return res, nil
	}

	return a.fromNextData(doc)
}

func (a *Araz) fromNextData(doc *goquery.Document) (*Result, error) {
	raw := strings.TrimSpace(doc.Find("script#__NEXT_DATA__").First().Text())
	if raw == "" {
		return nil, eris.Errorf("extract: araz: no store payload on %s", a.url)
	}
	var data struct {
		Props struct {
			PageProps map[string]any `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, eris.Wrap(err, "extract: araz: decode __NEXT_DATA__")
	}

	var list []any
	for _, k := range arazPageKeys {
		if l, ok := data.Props.PageProps[k].([]any); ok {
			list = l
			break
		}
	}

	res := &Result{}
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			res.fail(i, "araz: store %d is not an object", i)
			continue
		}
		res.add(branchRecord(model.ChainAraz, m))
	}
	return res, nil
}

// streamedChunks returns the string payloads of every
// self.__next_f.push([n, "..."]) call in a script.
func streamedChunks(script string) []string {
	var out []string
	for rest := script; ; {
		i := strings.Index(rest, nextPush)
		if i < 0 {
			return out
		}
		rest = rest[i+len(nextPush):]

		var chunk []any
		if err := json.NewDecoder(strings.NewReader(rest)).Decode(&chunk); err != nil {
			continue
		}
		if len(chunk) >= 2 {
			if s, ok := chunk[1].(string); ok {
				out = append(out, s)
			}
		}
	}
}

// isArazStore reports whether a decoded object carries an address or a
// latitude key.
func isArazStore(obj string) bool {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &keys); err != nil {
		return false
	}
	for _, k := range []string{"address", "lat", "latitude"} {
		if _, ok := keys[k]; ok {
			return true
		}
	}
	return false
}

// objectsWithID returns every JSON object in s that starts with an "id" key,
// as raw text.
func objectsWithID(s string) []string {
	const marker = `{"id":`
	var out []string
	for rest := s; ; {
		i := strings.Index(rest, marker)
		if i < 0 {
			return out
		}
		rest = rest[i:]
		dec := json.NewDecoder(strings.NewReader(rest))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			rest = rest[len(marker):]
			continue
		}
		out = append(out, string(raw))
		rest = rest[len(marker):]
	}
}
