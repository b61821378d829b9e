package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"github.com/titanous/json5"

	"github.com/azretail/chainscan/internal/fetcher"
	"github.com/azretail/chainscan/internal/model"
)

const rahatDefaultName = "Rahat Market"

var (
	latLngCall  = regexp.MustCompile(`new\s+google\.maps\.LatLng\(\s*([^,()]+?)\s*,\s*([^,()]+?)\s*\)`)
	rahatParens = regexp.MustCompile(`Rahat Market\s*\(([^)]*)\)`)
)

// Rahat reads rahatmarket.az, whose map page embeds the branches in a
// script variable:
//
//	var locations = [[new google.maps.LatLng(40.1, 49.8), 'Name', '<a href="...">Address</a>'], ...];
type Rahat struct {
	url string
}

// NewRahat creates the RAHAT extractor.
func NewRahat(url string) *Rahat { return &Rahat{url: url} }

func (r *Rahat) Chain() model.Chain { return model.ChainRahat }
func (r *Rahat) URL() string        { return r.url }
func (r *Rahat) Fields() []string   { return []string{model.ColName, model.ColAddress} }
func (r *Rahat) Extras() []string   { return nil }

// Extract implements Extractor.
func (r *Rahat) Extract(ctx context.Context, f fetcher.Fetcher) (*Result, error) {
	doc, err := fetchDocument(ctx, f, r.url)
	if err != nil {
		return nil, err
	}

	var script string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if t := s.Text(); strings.Contains(t, "var locations") {
			script = t
			return false
		}
		return true
	})
	if script == "" {
		return nil, eris.Errorf("extract: rahat: no locations script on %s", r.url)
	}

	entries, err := parseLocations(script)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i, e := range entries {
		rec, ok := rahatRecord(e)
		if !ok {
			res.fail(i, "rahat: location %d has an unexpected shape", i)
			continue
		}
		res.add(rec)
	}
	return res, nil
}

// parseLocations decodes the array literal assigned to "var locations".
// LatLng constructor calls are rewritten to plain arrays first; the rest of
// the literal is valid JSON5.
func parseLocations(script string) ([]any, error) {
	start := strings.Index(script, "var locations")
	if start < 0 {
		return nil, eris.New("extract: rahat: locations variable not found")
	}
	open := strings.Index(script[start:], "[")
	if open < 0 {
		return nil, eris.New("extract: rahat: locations array not found")
	}
	literal, err := balancedArray(script[start+open:])
	if err != nil {
		return nil, err
	}
	literal = latLngCall.ReplaceAllString(literal, "[$1, $2]")

	var entries []any
	if err := json5.Unmarshal([]byte(literal), &entries); err != nil {
		return nil, eris.Wrap(err, "extract: rahat: decode locations")
	}
	return entries, nil
}

// balancedArray returns the prefix of s that closes its opening bracket,
// skipping brackets inside quoted strings.
func balancedArray(s string) (string, error) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[:i+1], nil
			}
		}
	}
	return "", eris.New("extract: rahat: unterminated locations array")
}

// rahatRecord reads one [[lat, lng], name, addressLink] entry. Entries with
// only a label use the "Rahat Market (address)" form.
func rahatRecord(entry any) (model.RawRecord, bool) {
	parts, ok := entry.([]any)
	if !ok || len(parts) < 2 {
		return model.RawRecord{}, false
	}
	pos, ok := parts[0].([]any)
	if !ok || len(pos) != 2 {
		return model.RawRecord{}, false
	}
	label, ok := parts[1].(string)
	if !ok {
		return model.RawRecord{}, false
	}
	label = strings.TrimSpace(strings.ReplaceAll(label, `\`, ""))

	rec := model.RawRecord{
		Chain:      model.ChainRahat,
		Coordinate: model.RawCoordinate{Lat: stringify(pos[0]), Lon: stringify(pos[1])},
	}

	if len(parts) >= 3 {
		if link, ok := parts[2].(string); ok && strings.Contains(link, "<a") {
			name := label
			if name == "" {
				name = rahatDefaultName
			}
			rec.Name = model.Value(name)
			rec.Address = model.Value(anchorText(link))
			return rec, true
		}
	}

	rec.Name = model.Value(rahatDefaultName)
	switch m := rahatParens.FindStringSubmatch(label); {
	case m != nil:
		rec.Address = model.Value(m[1])
	case strings.HasPrefix(label, rahatDefaultName):
		rec.Address = model.Value(strings.TrimPrefix(label, rahatDefaultName))
	default:
		rec.Address = model.Value(label)
	}
	return rec, true
}

func anchorText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(doc.Text(), `\`, ""))
}
