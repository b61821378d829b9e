package coords

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ParseDecimal parses one decimal-degree value. A lone comma is accepted as
// the decimal separator.
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, eris.Wrapf(ErrMalformed, "decimal %q", s)
	}
	return v, nil
}

// ParsePair parses separate latitude and longitude fields and checks the
// global ranges [-90,90] and [-180,180].
func ParsePair(lat, lon string) (Point, error) {
	la, err := ParseDecimal(lat)
	if err != nil {
		return Point{}, err
	}
	lo, err := ParseDecimal(lon)
	if err != nil {
		return Point{}, err
	}
	return checkGlobal(Point{Lat: la, Lon: lo})
}

// ParseLatLon parses a "lat,lon" pair. Whitespace around either value is ignored.
func ParseLatLon(s string) (Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Point{}, eris.Wrapf(ErrMalformed, "pair %q", s)
	}
	return ParsePair(parts[0], parts[1])
}

func checkGlobal(p Point) (Point, error) {
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return Point{}, eris.Wrapf(ErrMalformed, "out of range %s", p)
	}
	return p, nil
}

var dmsPart = regexp.MustCompile(`(-)?\s*(\d+(?:\.\d+)?)\s*°\s*(\d+(?:\.\d+)?)\s*['′]\s*(\d+(?:\.\d+)?)\s*(?:"|″|'')\s*([NSEWnsew])?`)

// dmsFiller is what may appear between and around the two DMS components.
var dmsFiller = regexp.MustCompile(`^[\s,;]*$`)

type dmsValue struct {
	value   float64
	degrees float64 // whole-degree component, unsigned
	hemi    byte    // 'N', 'S', 'E', 'W' or 0
}

// ParseDMS converts a degrees-minutes-seconds pair such as
// 40°23'42"N 49°52'12"E into decimal degrees. Hemisphere letters pick the
// axis and sign; without letters the first component is latitude and a
// leading minus sign makes a value negative.
func ParseDMS(s string) (Point, error) {
	idx := dmsPart.FindAllStringSubmatchIndex(s, -1)
	if len(idx) != 2 {
		return Point{}, eris.Wrapf(ErrMalformed, "dms %q: want 2 components, got %d", s, len(idx))
	}
	if !dmsFiller.MatchString(s[:idx[0][0]]) ||
		!dmsFiller.MatchString(s[idx[0][1]:idx[1][0]]) ||
		!dmsFiller.MatchString(s[idx[1][1]:]) {
		return Point{}, eris.Wrapf(ErrMalformed, "dms %q: unexpected text", s)
	}

	var parts [2]dmsValue
	for i, m := range idx {
		v, err := dmsComponent(s, m)
		if err != nil {
			return Point{}, err
		}
		parts[i] = v
	}

	lat, lon := parts[0], parts[1]
	if isLonHemi(lat.hemi) || isLatHemi(lon.hemi) {
		lat, lon = lon, lat
	}
	if isLonHemi(lat.hemi) || isLatHemi(lon.hemi) {
		return Point{}, eris.Wrapf(ErrMalformed, "dms %q: both components on one axis", s)
	}
	// Only the degree component is bounded; minutes and seconds may carry a
	// value a little past 90 or 180, which the envelope check rejects later.
	if lat.degrees > 90 || lon.degrees > 180 {
		return Point{}, eris.Wrapf(ErrMalformed, "dms %q: degrees out of range", s)
	}
	return Point{Lat: lat.value, Lon: lon.value}, nil
}

func dmsComponent(s string, m []int) (dmsValue, error) {
	group := func(n int) string {
		if m[2*n] < 0 {
			return ""
		}
		return s[m[2*n]:m[2*n+1]]
	}
	deg, err1 := strconv.ParseFloat(group(2), 64)
	mins, err2 := strconv.ParseFloat(group(3), 64)
	secs, err3 := strconv.ParseFloat(group(4), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return dmsValue{}, eris.Wrapf(ErrMalformed, "dms component %q", s[m[0]:m[1]])
	}
	if mins >= 60 || secs >= 60 {
		return dmsValue{}, eris.Wrapf(ErrMalformed, "dms component %q: minutes and seconds must be below 60", s[m[0]:m[1]])
	}

	v := dmsValue{value: deg + mins/60 + secs/3600, degrees: deg}
	if h := group(5); h != "" {
		v.hemi = strings.ToUpper(h)[0]
	}
	if group(1) == "-" || v.hemi == 'S' || v.hemi == 'W' {
		v.value = -v.value
	}
	return v, nil
}

func isLatHemi(h byte) bool { return h == 'N' || h == 'S' }
func isLonHemi(h byte) bool { return h == 'E' || h == 'W' }

// LooksLikeDMS reports whether s contains a degree sign.
func LooksLikeDMS(s string) bool {
	return strings.ContainsRune(s, '°')
}

// mapLinkParams are the query parameters map providers put a location in,
// in lookup order.
var mapLinkParams = []string{"q", "query", "ll", "destination", "daddr", "center"}

var atPair = regexp.MustCompile(`@(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`)

// FromMapLink extracts a coordinate from a map URL. Yandex "ll" values are
// lon,lat and are swapped.
func FromMapLink(raw string) (Point, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return Point{}, eris.Wrapf(ErrMalformed, "map link %q", raw)
	}
	q := u.Query()
	for _, key := range mapLinkParams {
		v := q.Get(key)
		if v == "" {
			continue
		}
		v = strings.TrimPrefix(v, "loc:")
		p, err := ParseLatLon(v)
		if err != nil {
			continue
		}
		if key == "ll" && strings.Contains(u.Host, "yandex") {
			return checkGlobal(Point{Lat: p.Lon, Lon: p.Lat})
		}
		return p, nil
	}
	if m := atPair.FindStringSubmatch(u.Path); m != nil {
		return ParsePair(m[1], m[2])
	}
	return Point{}, eris.Wrapf(ErrMalformed, "map link %q: no coordinate parameter", raw)
}
