package extract

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/azretail/chainscan/internal/fetcher"
)

// fetchDocument downloads url and parses it as HTML.
func fetchDocument(ctx context.Context, f fetcher.Fetcher, url string) (*goquery.Document, error) {
	body, err := f.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: parse html from %s", url)
	}
	return doc, nil
}

// text returns the trimmed text of the first match of sel inside s.
func text(s *goquery.Selection, sel string) string {
	return strings.TrimSpace(s.Find(sel).First().Text())
}

// pick returns the value of the first key present in m, rendered as text.
// A key that is present wins even when its value is empty.
func pick(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		return stringify(v), true
	}
	return "", false
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// listOf finds the listing array in a decoded JSON document: the document
// itself when it is an array, otherwise the first wrapper key that holds one.
// A lone object is treated as a single listing.
func listOf(doc any, wrappers ...string) []any {
	switch t := doc.(type) {
	case []any:
		return t
	case map[string]any:
		for _, k := range wrappers {
			if inner, ok := t[k]; ok {
				if list, ok := inner.([]any); ok {
					return list
				}
			}
		}
		if len(t) > 0 {
			return []any{t}
		}
	}
	return nil
}
