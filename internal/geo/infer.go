package geo

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/azretail/chainscan/internal/coords"
)

// fuzzyThreshold is the minimum Jaro-Winkler similarity for a misspelled
// city name to count as a match.
const fuzzyThreshold = 0.92

var (
	districtPattern   = regexp.MustCompile(`(?i)([\p{L}\p{N}_]+)\s+(?:ray|rayonu)`)
	settlementPattern = regexp.MustCompile(`(?i)([\p{L}\p{N}_]+)\s+(?:şəh|şəhəri|qəs|qəsəbəsi)`)
	wordPattern       = regexp.MustCompile(`[\p{L}]+`)
)

// Inferrer assigns a city to a store. It is safe for concurrent use.
type Inferrer struct {
	g         *Gazetteer
	districts map[string]bool
	stopwords map[string]bool
}

// NewInferrer builds an Inferrer over g.
func NewInferrer(g *Gazetteer) *Inferrer {
	in := &Inferrer{
		g:         g,
		districts: make(map[string]bool),
		stopwords: make(map[string]bool),
	}
	for _, d := range g.CapitalDistricts {
		in.districts[fold(d)] = true
	}
	for _, s := range g.SettlementStopwords {
		in.stopwords[fold(s)] = true
	}
	return in
}

// Gazetteer returns the reference data in use.
func (in *Inferrer) Gazetteer() *Gazetteer { return in.g }

// fold normalizes s for comparison with Azerbaijani casing rules, so that
// "İ" folds to "i" and "I" to "ı".
func fold(s string) string {
	return cases.Lower(language.Azerbaijani).String(norm.NFC.String(s))
}

// latinize maps Azerbaijani letters to their plain Latin look-alikes, so
// "lenkəran" and "lənkəran" compare equal. Input must already be folded.
var latinize = strings.NewReplacer(
	"ə", "e", "ı", "i", "ş", "s", "ç", "c", "ğ", "g", "ö", "o", "ü", "u",
)

func capitalize(word string) string {
	return cases.Title(language.Azerbaijani).String(fold(word))
}

// City infers the city for a store. Address rules run first, in order:
// known city name, "X rayonu" district, "X qəsəbəsi/şəhəri" settlement,
// misspelled city name, capital keywords. Coordinates decide when the
// address says nothing; p may be nil when none are known.
func (in *Inferrer) City(address string, p *coords.Point) string {
	address = strings.TrimSpace(address)
	if address == "" {
		if p == nil {
			return Unknown
		}
		return in.g.CityAt(*p)
	}

	if city := in.FromAddress(address); city != "" {
		return city
	}
	if p != nil {
		return in.g.CityAt(*p)
	}
	return Regional
}

// FromAddress applies the address rules alone and returns "" when none match.
func (in *Inferrer) FromAddress(address string) string {
	folded := fold(address)

	for _, c := range in.g.AddressCities {
		if strings.Contains(folded, fold(c)) {
			return c
		}
	}

	if m := districtPattern.FindStringSubmatch(norm.NFC.String(address)); m != nil {
		if in.districts[fold(m[1])] {
			return in.g.Capital
		}
		return capitalize(m[1])
	}

	if m := settlementPattern.FindStringSubmatch(norm.NFC.String(address)); m != nil {
		if !in.stopwords[fold(m[1])] {
			return capitalize(m[1])
		}
	}

	if city := in.fuzzy(folded); city != "" {
		return city
	}

	for _, kw := range in.g.CapitalKeywords {
		if strings.Contains(folded, fold(kw)) {
			return in.g.Capital
		}
	}
	return ""
}

// fuzzy matches address words against known city names, tolerating one
// dropped or swapped letter.
func (in *Inferrer) fuzzy(folded string) string {
	for _, word := range wordPattern.FindAllString(folded, -1) {
		wl := utf8.RuneCountInString(word)
		if wl < 4 {
			continue
		}
		lw := latinize.Replace(word)
		for _, c := range in.g.AddressCities {
			fc := fold(c)
			if d := wl - utf8.RuneCountInString(fc); d > 1 || d < -1 {
				continue
			}
			if matchr.JaroWinkler(lw, latinize.Replace(fc), false) >= fuzzyThreshold {
				return c
			}
		}
	}
	return ""
}
