package coords

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLatLon_Identity(t *testing.T) {
	t.Parallel()

	for _, in := range []Point{{40.4093, 49.8671}, {-33.5, 151.25}, {0, 0}, {90, -180}} {
		p, err := ParseLatLon(in.String())
		require.NoError(t, err)
		assert.InDelta(t, in.Lat, p.Lat, 1e-9)
		assert.InDelta(t, in.Lon, p.Lon, 1e-9)
	}
}

func TestParsePair(t *testing.T) {
	t.Parallel()

	p, err := ParsePair(" 40.3777 ", "49,8920")
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: 40.3777, Lon: 49.892}, p)

	tests := []struct {
		name     string
		lat, lon string
	}{
		{"non numeric", "abc", "49.8"},
		{"empty lon", "40.1", ""},
		{"lat range", "91", "49"},
		{"lon range", "40", "-181"},
		{"nan", "NaN", "49"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParsePair(tt.lat, tt.lon)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
		})
	}
}

func TestParseLatLon_WrongArity(t *testing.T) {
	t.Parallel()

	_, err := ParseLatLon("40.1,49.2,17")
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestParseDMS_Example(t *testing.T) {
	t.Parallel()

	p, err := ParseDMS(`40°23'42"N 49°52'12"E`)
	require.NoError(t, err)
	assert.InDelta(t, 40.39500, p.Lat, 1e-6)
	assert.InDelta(t, 49.87000, p.Lon, 1e-6)
}

func TestParseDMS_Formula(t *testing.T) {
	t.Parallel()

	for deg := 0; deg <= 90; deg += 9 {
		for mins := 0; mins < 60; mins += 7 {
			for secs := 0.0; secs < 60; secs += 13.25 {
				want := float64(deg) + float64(mins)/60 + secs/3600
				in := formatDMS(deg, mins, secs, 'S') + " " + formatDMS(deg, mins, secs, 'E')
				p, err := ParseDMS(in)
				require.NoError(t, err, in)
				assert.InDelta(t, -want, p.Lat, 1e-5, in)
				assert.InDelta(t, want, p.Lon, 1e-5, in)
			}
		}
	}
}

func TestParseDMS_DegreeBoundary(t *testing.T) {
	t.Parallel()

	p, err := ParseDMS(`90°0'13.25"S 180°30'0"W`)
	require.NoError(t, err)
	assert.InDelta(t, -(90 + 13.25/3600), p.Lat, 1e-6)
	assert.InDelta(t, -180.5, p.Lon, 1e-6)

	_, err = ParseDMS(`91°0'0"N 49°52'12"E`)
	assert.True(t, errors.Is(err, ErrMalformed))
	_, err = ParseDMS(`40°0'0"N 181°0'0"E`)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func formatDMS(deg, mins int, secs float64, hemi byte) string {
	return fmt.Sprintf(`%d°%d'%g"%c`, deg, mins, secs, hemi)
}

func TestParseDMS_Variants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		lat  float64
		lon  float64
	}{
		{"primes", `40°23′42″N, 49°52′12″E`, 40.395, 49.87},
		{"swapped axes", `49°52'12"E 40°23'42"N`, 40.395, 49.87},
		{"no hemisphere", `40°23'42" 49°52'12"`, 40.395, 49.87},
		{"minus sign", `-40°23'42" -49°52'12"`, -40.395, -49.87},
		{"western", `40°23'42"N 73°58'30"W`, 40.395, -73.975},
		{"decimal seconds", `40°23'42.5"N 49°52'12.25"E`, 40 + 23.0/60 + 42.5/3600, 49 + 52.0/60 + 12.25/3600},
		{"doubled apostrophe", `40°23'42''N 49°52'12''E`, 40.395, 49.87},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := ParseDMS(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.lat, p.Lat, 1e-6)
			assert.InDelta(t, tt.lon, p.Lon, 1e-6)
		})
	}
}

func TestParseDMS_Rejects(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		`40°23'42"N`,
		`40°23'42"N 49°52'12"E 1°1'1"E`,
		`40°61'42"N 49°52'12"E`,
		`40°23'60"N 49°52'12"E`,
		`40°23'42"N 49°52'12"N`,
		`Baku 40°23'42"N 49°52'12"E`,
		`95°0'0"N 49°52'12"E`,
		`not a coordinate`,
	} {
		_, err := ParseDMS(in)
		assert.True(t, errors.Is(err, ErrMalformed), in)
	}
}

func TestFromMapLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		link string
		want Point
	}{
		{"google q", "https://www.google.com/maps?q=40.4093,49.8671", Point{40.4093, 49.8671}},
		{"google search api", "https://www.google.com/maps/search/?api=1&query=40.5,49.9", Point{40.5, 49.9}},
		{"loc prefix", "https://maps.google.com/?q=loc:40.6,49.1", Point{40.6, 49.1}},
		{"directions", "https://www.google.com/maps/dir/?api=1&destination=40.7%2C49.2", Point{40.7, 49.2}},
		{"daddr", "https://maps.google.com/maps?daddr=40.8,49.3", Point{40.8, 49.3}},
		{"at path", "https://www.google.com/maps/place/Bravo/@40.3777,49.892,17z", Point{40.3777, 49.892}},
		{"yandex ll", "https://yandex.az/maps/?ll=49.8671%2C40.4093&z=16", Point{40.4093, 49.8671}},
		{"q text then ll", "https://maps.google.com/?q=Bravo+Supermarket&ll=40.1,49.5", Point{40.1, 49.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := FromMapLink(tt.link)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.Lat, p.Lat, 1e-9)
			assert.InDelta(t, tt.want.Lon, p.Lon, 1e-9)
		})
	}
}

func TestFromMapLink_Missing(t *testing.T) {
	t.Parallel()

	for _, link := range []string{
		"https://www.google.com/maps?q=Bravo+Supermarket",
		"https://www.google.com/maps",
		"not a link",
	} {
		_, err := FromMapLink(link)
		assert.True(t, errors.Is(err, ErrMalformed), link)
	}
}

func TestEnvelope(t *testing.T) {
	t.Parallel()

	env := Azerbaijan()
	assert.True(t, env.Contains(Point{40.4, 49.9}))
	assert.True(t, env.Contains(Point{38, 44}), "edges inclusive")
	assert.True(t, env.Contains(Point{42, 51}), "edges inclusive")
	assert.False(t, env.Contains(Point{55.0, 49.9}))
	assert.False(t, env.Contains(Point{40.4, 51.01}))
	assert.Contains(t, env.String(), "lat [38,42]")
}
