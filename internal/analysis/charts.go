package analysis

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/azretail/chainscan/internal/geo"
	"github.com/azretail/chainscan/internal/model"
)

// Map extent of the store map, slightly wider than the coordinate envelope's
// populated part.
const (
	mapMinLon = 44.5
	mapMaxLon = 51.0
	mapMinLat = 38.2
	mapMaxLat = 42.0
)

var (
	chainColors = map[model.Chain]color.Color{
		model.ChainOBA:   color.RGBA{R: 0x00, G: 0x66, B: 0xCC, A: 0xFF},
		model.ChainAraz:  color.RGBA{R: 0xFF, G: 0x66, B: 0x00, A: 0xFF},
		model.ChainBravo: color.RGBA{R: 0xCC, G: 0x00, B: 0x00, A: 0xFF},
		model.ChainRahat: color.RGBA{R: 0x00, G: 0xCC, B: 0x33, A: 0xFF},
		model.ChainTam:   color.RGBA{R: 0x99, G: 0x33, B: 0xFF, A: 0xFF},
	}
	colorHigh   = color.RGBA{R: 0xD6, G: 0x27, B: 0x28, A: 0xFF}
	colorMedium = color.RGBA{R: 0xFF, G: 0x7F, B: 0x0E, A: 0xFF}
	colorLow    = color.RGBA{R: 0x2C, G: 0xA0, B: 0x2C, A: 0xFF}
	colorMuted  = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xFF}
)

func chainColor(c model.Chain) color.Color {
	if col, ok := chainColors[c]; ok {
		return col
	}
	return colorMuted
}

// tiered colours a value by two ascending thresholds.
func tiered(v, medium, high float64) color.Color {
	switch {
	case v >= high:
		return colorHigh
	case v >= medium:
		return colorMedium
	default:
		return colorLow
	}
}

// figure is anything that renders itself to an image file: a single plot or
// a dashboard of them.
type figure interface {
	Save(w, h vg.Length, file string) error
}

type chart struct {
	plot    figure
	insight string
}

func (c chart) save(path string, w, h float64) error {
	return c.plot.Save(vg.Length(w)*vg.Inch, vg.Length(h)*vg.Inch, path)
}

type bar struct {
	label string
	value float64
	color color.Color
	note  string // drawn next to the bar; empty for none
}

// barPlot draws one bar per item. Horizontal plots list the first item at
// the bottom.
func barPlot(title, valueLabel string, bars []bar, horizontal bool) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title

	names := make([]string, len(bars))
	var notes plotter.XYLabels
	for i, b := range bars {
		names[i] = b.label
		bc, err := plotter.NewBarChart(plotter.Values{b.value}, vg.Points(14))
		if err != nil {
			return nil, err
		}
		bc.Horizontal = horizontal
		bc.XMin = float64(i)
		bc.Color = b.color
		bc.LineStyle.Width = 0
		p.Add(bc)

		if b.note != "" {
			xy := plotter.XY{X: float64(i), Y: b.value}
			if horizontal {
				xy = plotter.XY{X: b.value, Y: float64(i)}
			}
			notes.XYs = append(notes.XYs, xy)
			notes.Labels = append(notes.Labels, b.note)
		}
	}

	if len(notes.Labels) > 0 {
		l, err := plotter.NewLabels(notes)
		if err != nil {
			return nil, err
		}
		if horizontal {
			l.Offset = vg.Point{X: vg.Points(4), Y: -vg.Points(3)}
		} else {
			l.Offset = vg.Point{X: -vg.Points(6), Y: vg.Points(3)}
		}
		p.Add(l)
	}

	if horizontal {
		p.NominalY(names...)
		p.X.Label.Text = valueLabel
		p.X.Max *= 1.15
	} else {
		p.NominalX(names...)
		p.Y.Label.Text = valueLabel
		p.Y.Max *= 1.1
		slantTicks(p)
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

func slantTicks(p *plot.Plot) {
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
}

// groupedBars draws one bar series per key at each nominal x position.
func groupedBars(p *plot.Plot, keys []string, colors []color.Color, series [][]float64) error {
	const w = 8
	for j, vals := range series {
		bc, err := plotter.NewBarChart(plotter.Values(vals), vg.Points(w))
		if err != nil {
			return err
		}
		bc.Color = colors[j]
		bc.LineStyle.Width = 0
		bc.Offset = vg.Points(w * (float64(j) - float64(len(series)-1)/2))
		p.Add(bc)
		p.Legend.Add(keys[j], bc)
	}
	p.Legend.Top = true
	return nil
}

func marketShareChart(m *Market) (chart, error) {
	if m.Summary.Stores == 0 {
		return chart{}, ErrNoData
	}
	chains := append([]ChainStats(nil), m.Chains...)
	sort.SliceStable(chains, func(i, j int) bool { return chains[i].Stores < chains[j].Stores })

	bars := make([]bar, len(chains))
	for i, cs := range chains {
		bars[i] = bar{
			label: string(cs.Chain),
			value: float64(cs.Stores),
			color: chainColor(cs.Chain),
			note:  fmt.Sprintf("%d (%.1f%%)", cs.Stores, cs.Share),
		}
	}
	p, err := barPlot("Market share by store count", "Stores", bars, true)
	if err != nil {
		return chart{}, err
	}
	return chart{p, fmt.Sprintf("%s leads with %.1f%% of %d stores",
		m.Summary.Leader, m.Summary.LeaderShare, m.Summary.Stores)}, nil
}

func geographicChart(m *Market) (chart, error) {
	top := Ranked(m.Cities, 20)
	if len(top) == 0 {
		return chart{}, ErrNoData
	}
	p := plot.New()
	p.Title.Text = "Geographic distribution: dominant chain per city"
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	var labels plotter.XYLabels
	inLegend := make(map[model.Chain]bool)
	single := 0
	for _, c := range top {
		s, err := plotter.NewScatter(plotter.XYs{{X: c.MeanLon, Y: c.MeanLat}})
		if err != nil {
			return chart{}, err
		}
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Color = chainColor(c.Dominant)
		s.GlyphStyle.Radius = vg.Points(3 + 2*math.Sqrt(float64(c.Stores)))
		p.Add(s)
		if !inLegend[c.Dominant] {
			inLegend[c.Dominant] = true
			p.Legend.Add(string(c.Dominant), s)
		}

		label := fmt.Sprintf("%s\n%.0f%%", c.City, c.DominantShare)
		if c.Chains == 1 {
			label = c.City + "\nmonopoly"
			single++
		}
		labels.XYs = append(labels.XYs, plotter.XY{X: c.MeanLon, Y: c.MeanLat})
		labels.Labels = append(labels.Labels, label)
	}
	l, err := plotter.NewLabels(labels)
	if err != nil {
		return chart{}, err
	}
	p.Add(l, plotter.NewGrid())
	return chart{p, fmt.Sprintf("%d of the top %d cities are single-chain markets", single, len(top))}, nil
}

func hhiChart(m *Market) (chart, error) {
	top := Ranked(m.Cities, 15)
	if len(top) == 0 {
		return chart{}, ErrNoData
	}
	bars := make([]bar, len(top))
	high := 0
	for i, c := range top {
		// reversed so the largest city is on top
		bars[len(top)-1-i] = bar{
			label: c.City,
			value: float64(c.HHI),
			color: tiered(float64(c.HHI), HHIModerate, HHIHigh),
			note:  fmt.Sprintf("%d", c.HHI),
		}
		if c.HHI >= HHIHigh {
			high++
		}
	}
	p, err := barPlot("Market concentration (HHI) by city", "HHI", bars, true)
	if err != nil {
		return chart{}, err
	}
	return chart{p, fmt.Sprintf("%d of the top %d cities are highly concentrated (HHI >= %d)",
		high, len(top), HHIHigh)}, nil
}

func topCitiesChart(m *Market) (chart, error) {
	top := Ranked(m.Cities, 15)
	if len(top) == 0 {
		return chart{}, ErrNoData
	}
	bars := make([]bar, len(top))
	for i, c := range top {
		bars[len(top)-1-i] = bar{
			label: c.City,
			value: float64(c.Stores),
			color: chainColor(c.Dominant),
			note:  fmt.Sprintf("%d", c.Stores),
		}
	}
	p, err := barPlot("Top cities by store count", "Stores", bars, true)
	if err != nil {
		return chart{}, err
	}
	first := top[0]
	return chart{p, fmt.Sprintf("%s has %d stores (%.1f%% of the market)",
		first.City, first.Stores, Share(first.Stores, m.Summary.Stores))}, nil
}

func chainByCityChart(m *Market) (chart, error) {
	top := Ranked(m.Cities, 12)
	active := m.ActiveChains()
	if len(top) == 0 || len(active) == 0 {
		return chart{}, ErrNoData
	}
	p := plot.New()
	p.Title.Text = "Chain presence in the top cities"
	p.Y.Label.Text = "Stores"

	names := make([]string, len(top))
	for i, c := range top {
		names[i] = c.City
	}
	keys := make([]string, len(active))
	colors := make([]color.Color, len(active))
	series := make([][]float64, len(active))
	for j, ch := range active {
		keys[j] = string(ch)
		colors[j] = chainColor(ch)
		series[j] = make([]float64, len(top))
		for i, c := range top {
			series[j][i] = float64(c.ByChain[ch])
		}
	}
	if err := groupedBars(p, keys, colors, series); err != nil {
		return chart{}, err
	}
	p.NominalX(names...)
	slantTicks(p)

	present := 0
	for _, c := range top {
		if c.ByChain[m.Summary.Leader] > 0 {
			present++
		}
	}
	return chart{p, fmt.Sprintf("%s is present in %d of the top %d cities",
		m.Summary.Leader, present, len(top))}, nil
}

func intensityChart(m *Market) (chart, error) {
	top := Ranked(m.Cities, 12)
	if len(top) == 0 {
		return chart{}, ErrNoData
	}
	bars := make([]bar, len(top))
	best := top[0]
	for i, c := range top {
		bars[i] = bar{
			label: c.City,
			value: c.Intensity(),
			color: chainColor(c.Dominant),
			note:  fmt.Sprintf("%.1f", c.Intensity()),
		}
		if c.Intensity() > best.Intensity() {
			best = c
		}
	}
	p, err := barPlot("Competitive intensity (stores / chains squared)", "Intensity", bars, false)
	if err != nil {
		return chart{}, err
	}
	return chart{p, fmt.Sprintf("%s has the highest intensity at %.1f with %d chains",
		best.City, best.Intensity(), best.Chains)}, nil
}

func opportunityChart(m *Market) (chart, error) {
	top := Ranked(m.Cities, 15)
	if len(top) == 0 {
		return chart{}, ErrNoData
	}
	sorted := append([]CityStats(nil), top...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Opportunity() < sorted[j].Opportunity() })

	bars := make([]bar, len(sorted))
	for i, c := range sorted {
		col := colorMuted
		if c.Opportunity() > 0 {
			col = colorLow
		}
		bars[i] = bar{label: c.City, value: c.Opportunity(), color: col, note: fmt.Sprintf("%.2f", c.Opportunity())}
	}
	p, err := barPlot("Market opportunity (stores/100 - chains)", "Score", bars, true)
	if err != nil {
		return chart{}, err
	}
	best := sorted[len(sorted)-1]
	return chart{p, fmt.Sprintf("%s scores highest for expansion at %.2f", best.City, best.Opportunity())}, nil
}

func chainComparisonChart(m *Market) (chart, error) {
	active := m.ActiveChains()
	if len(active) == 0 {
		return chart{}, ErrNoData
	}
	p := plot.New()
	p.Title.Text = "Chain comparison"
	p.Y.Label.Text = "Count"

	names := make([]string, len(active))
	cities := make([]float64, len(active))
	perCity := make([]float64, len(active))
	widest := m.Chain(active[0])
	for i, ch := range active {
		cs := m.Chain(ch)
		names[i] = string(ch)
		cities[i] = float64(cs.Cities)
		perCity[i] = cs.StoresPerCity
		if cs.Cities > widest.Cities {
			widest = cs
		}
	}
	err := groupedBars(p,
		[]string{"Cities covered", "Stores per city"},
		[]color.Color{colorLow, colorMedium},
		[][]float64{cities, perCity},
	)
	if err != nil {
		return chart{}, err
	}
	p.NominalX(names...)
	return chart{p, fmt.Sprintf("%s covers the most cities (%d)", widest.Chain, widest.Cities)}, nil
}

func regionalChart(m *Market) (chart, error) {
	if m.Summary.Stores == 0 {
		return chart{}, ErrNoData
	}
	top := Ranked(m.Cities, 8)
	others := m.Summary.Stores
	var bars []bar
	for i := len(top) - 1; i >= 0; i-- {
		c := top[i]
		others -= c.Stores
		bars = append(bars, bar{
			label: c.City,
			value: Share(c.Stores, m.Summary.Stores),
			color: chainColor(c.Dominant),
			note:  fmt.Sprintf("%.1f%%", Share(c.Stores, m.Summary.Stores)),
		})
	}
	if others > 0 {
		bars = append([]bar{{
			label: "Others",
			value: Share(others, m.Summary.Stores),
			color: colorMuted,
			note:  fmt.Sprintf("%.1f%%", Share(others, m.Summary.Stores)),
		}}, bars...)
	}
	p, err := barPlot("Regional distribution of stores", "Share of stores (%)", bars, true)
	if err != nil {
		return chart{}, err
	}
	held := m.Summary.Stores - others
	return chart{p, fmt.Sprintf("the top %d cities hold %.1f%% of stores", len(top), Share(held, m.Summary.Stores))}, nil
}

func completenessChart(m *Market) (chart, error) {
	active := m.ActiveChains()
	if len(m.Optional) == 0 || len(active) == 0 {
		return chart{}, ErrNoData
	}
	p := plot.New()
	p.Title.Text = "Data completeness by field"
	p.Y.Label.Text = "Collected (%)"
	p.Y.Max = 110

	keys := make([]string, len(active))
	colors := make([]color.Color, len(active))
	series := make([][]float64, len(active))
	for j, ch := range active {
		keys[j] = string(ch)
		colors[j] = chainColor(ch)
		cs := m.Chain(ch)
		series[j] = make([]float64, len(m.Optional))
		for i, col := range m.Optional {
			series[j][i] = cs.Completeness[col].Collected
		}
	}
	if err := groupedBars(p, keys, colors, series); err != nil {
		return chart{}, err
	}
	p.NominalX(m.Optional...)
	slantTicks(p)

	worst, worstPct := "", 101.0
	for _, col := range m.Optional {
		filled := 0
		for _, r := range m.Records {
			if r.FieldByColumn(col).Filled() {
				filled++
			}
		}
		if pct := Share(filled, len(m.Records)); pct < worstPct {
			worst, worstPct = col, pct
		}
	}
	return chart{p, fmt.Sprintf("%s is the sparsest field, filled for %.1f%% of stores", worst, worstPct)}, nil
}

func latitudeChart(m *Market) (chart, error) {
	active := m.ActiveChains()
	if len(active) == 0 {
		return chart{}, ErrNoData
	}
	lats := make(map[model.Chain]plotter.Values)
	for _, r := range m.Records {
		lats[r.Chain] = append(lats[r.Chain], r.Latitude)
	}

	p := plot.New()
	p.Title.Text = "Latitude distribution by chain"
	p.Y.Label.Text = "Latitude"

	names := make([]string, len(active))
	widest, span := active[0], -1.0
	for i, ch := range active {
		names[i] = string(ch)
		box, err := plotter.NewBoxPlot(vg.Points(30), float64(i), lats[ch])
		if err != nil {
			return chart{}, err
		}
		box.FillColor = chainColor(ch)
		p.Add(box)

		lo, hi := lats[ch][0], lats[ch][0]
		for _, v := range lats[ch] {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		if hi-lo > span {
			widest, span = ch, hi-lo
		}
	}
	p.NominalX(names...)
	p.Add(plotter.NewGrid())
	return chart{p, fmt.Sprintf("%s spans the widest latitude range (%.2f degrees)", widest, span)}, nil
}

func saturationChart(m *Market) (chart, error) {
	var cities []CityStats
	for _, c := range Ranked(m.Cities, 0) {
		if c.Population > 0 {
			cities = append(cities, c)
		}
	}
	if len(cities) == 0 {
		return chart{}, ErrNoData
	}
	sort.SliceStable(cities, func(i, j int) bool { return cities[i].PerTenThousand() > cities[j].PerTenThousand() })

	var sum float64
	bars := make([]bar, len(cities))
	for i, c := range cities {
		v := c.PerTenThousand()
		sum += v
		bars[i] = bar{label: c.City, value: v, color: tiered(v, 3, 6), note: fmt.Sprintf("%.1f", v)}
	}
	avg := sum / float64(len(cities))

	p, err := barPlot("Market saturation (stores per 10k residents)", "Stores per 10k", bars, false)
	if err != nil {
		return chart{}, err
	}
	line := plotter.NewFunction(func(float64) float64 { return avg })
	line.Color = colorMuted
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("average %.2f", avg), line)
	p.Legend.Top = true

	under := cities[len(cities)-1]
	return chart{p, fmt.Sprintf("%s is the most underserved city at %.2f stores per 10k residents (average %.2f)",
		under.City, under.PerTenThousand(), avg)}, nil
}

func bravoFormatsChart(m *Market) (chart, error) {
	counts := make(map[string]int)
	for _, r := range m.Records {
		if r.Chain != model.ChainBravo {
			continue
		}
		if f := r.Extra["type"]; f.Filled() {
			counts[f.String()]++
		}
	}
	if len(counts) == 0 {
		return chart{}, ErrNoData
	}
	formats := make([]string, 0, len(counts))
	for k := range counts {
		formats = append(formats, k)
	}
	sort.Slice(formats, func(i, j int) bool {
		if counts[formats[i]] != counts[formats[j]] {
			return counts[formats[i]] > counts[formats[j]]
		}
		return formats[i] < formats[j]
	})

	bars := make([]bar, len(formats))
	for i, f := range formats {
		bars[i] = bar{label: f, value: float64(counts[f]), color: chainColor(model.ChainBravo), note: fmt.Sprintf("%d", counts[f])}
	}
	p, err := barPlot("BRAVO store formats", "Stores", bars, false)
	if err != nil {
		return chart{}, err
	}
	return chart{p, fmt.Sprintf("%s is the most common BRAVO format (%d stores)", formats[0], counts[formats[0]])}, nil
}

func territoryChart(m *Market) (chart, error) {
	top := Ranked(m.Cities, 12)
	if len(top) == 0 {
		return chart{}, ErrNoData
	}
	bars := make([]bar, len(top))
	for i, c := range top {
		bars[len(top)-1-i] = bar{
			label: c.City,
			value: c.DominantShare,
			color: chainColor(c.Dominant),
			note:  fmt.Sprintf("%s %.0f%%", c.Dominant, c.DominantShare),
		}
	}
	p, err := barPlot("Chain territory: dominant chain share", "Dominant chain share (%)", bars, true)
	if err != nil {
		return chart{}, err
	}
	return chart{p, fmt.Sprintf("%d cities are served by a single chain", m.Summary.Monopolies)}, nil
}

func storeMapChart(m *Market) (chart, error) {
	if len(m.Records) == 0 {
		return chart{}, ErrNoData
	}
	pts := make(map[model.Chain]plotter.XYs)
	for _, r := range m.Records {
		pts[r.Chain] = append(pts[r.Chain], plotter.XY{X: r.Longitude, Y: r.Latitude})
	}

	p := plot.New()
	p.Title.Text = "Store locations"
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"
	for _, ch := range m.ActiveChains() {
		s, err := plotter.NewScatter(pts[ch])
		if err != nil {
			return chart{}, err
		}
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Color = chainColor(ch)
		s.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("%s (%d)", ch, len(pts[ch])), s)
	}
	p.X.Min, p.X.Max = mapMinLon, mapMaxLon
	p.Y.Min, p.Y.Max = mapMinLat, mapMaxLat
	p.Add(plotter.NewGrid())

	regional := 0
	for _, r := range m.Records {
		if geo.IsPseudo(r.City) {
			regional++
		}
	}
	return chart{p, fmt.Sprintf("%d stores mapped, %d outside any known city", len(m.Records), regional)}, nil
}

// statPanel is one dashboard tile: a large headline value over a caption.
func statPanel(value, caption string, col color.Color) (*plot.Plot, error) {
	p := plot.New()
	p.HideAxes()

	l, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: 0.5, Y: 0.6}, {X: 0.5, Y: 0.2}},
		Labels: []string{value, caption},
	})
	if err != nil {
		return nil, err
	}
	l.TextStyle[0].Font.Size = vg.Points(40)
	l.TextStyle[0].Color = col
	l.TextStyle[1].Font.Size = vg.Points(14)
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = text.XCenter
		l.TextStyle[i].YAlign = text.YCenter
	}
	p.Add(l)
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	return p, nil
}

func overallSummaryChart(m *Market) (chart, error) {
	s := m.Summary
	if s.Stores == 0 {
		return chart{}, ErrNoData
	}
	num := message.NewPrinter(language.English)

	tiles := []struct {
		value, caption string
		col            color.Color
	}{
		{num.Sprintf("%d", s.Stores), "Total stores", color.RGBA{R: 0x34, G: 0x98, B: 0xDB, A: 0xFF}},
		{string(s.Leader), fmt.Sprintf("Market leader (%.0f%%)", s.LeaderShare), color.RGBA{R: 0xE7, G: 0x4C, B: 0x3C, A: 0xFF}},
		{num.Sprintf("%d", s.Cities), "Cities covered", color.RGBA{R: 0x2E, G: 0xCC, B: 0x71, A: 0xFF}},
		{fmt.Sprintf("%.0f", s.StoresPerCity), "Average stores per city", color.RGBA{R: 0xF3, G: 0x9C, B: 0x12, A: 0xFF}},
	}
	d := dashboard{panels: [][]*plot.Plot{make([]*plot.Plot, 2), make([]*plot.Plot, 2)}}
	for i, tile := range tiles {
		p, err := statPanel(tile.value, tile.caption, tile.col)
		if err != nil {
			return chart{}, err
		}
		d.panels[i/2][i%2] = p
	}
	return chart{d, num.Sprintf("%d stores across %d cities. %s leads with %.0f%% share",
		s.Stores, s.Cities, s.Leader, s.LeaderShare)}, nil
}

// median of vs; vs is not modified. Even-length input averages the middle pair.
func median(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func medianLine(from, to plotter.XY) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{from, to})
	if err != nil {
		return nil, err
	}
	l.Color = colorHigh
	l.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	return l, nil
}

// growthPotentialChart places the largest cities by competing chains and
// store count. Cities left of the median chain count and above the median
// store count are the expansion candidates.
func growthPotentialChart(m *Market) (chart, error) {
	top := Ranked(m.Cities, 12)
	if len(top) == 0 {
		return chart{}, ErrNoData
	}
	chains := make([]float64, len(top))
	stores := make([]float64, len(top))
	ratios := make([]float64, len(top))
	maxChains, maxStores := 0.0, 0.0
	for i, c := range top {
		chains[i], stores[i] = float64(c.Chains), float64(c.Stores)
		ratios[i] = stores[i] / chains[i]
		maxChains, maxStores = math.Max(maxChains, chains[i]), math.Max(maxStores, stores[i])
	}
	medChains, medStores, medRatio := median(chains), median(stores), median(ratios)

	p := plot.New()
	p.Title.Text = "Growth potential: competing chains vs stores"
	p.X.Label.Text = "Competing chains"
	p.Y.Label.Text = "Stores"

	var labels plotter.XYLabels
	for i, c := range top {
		xy := plotter.XY{X: chains[i], Y: stores[i]}
		s, err := plotter.NewScatter(plotter.XYs{xy})
		if err != nil {
			return chart{}, err
		}
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Color = tiered(ratios[i], medRatio, 2*medRatio)
		s.GlyphStyle.Radius = vg.Points(3 + 2*math.Sqrt(stores[i]))
		p.Add(s)
		labels.XYs = append(labels.XYs, xy)
		labels.Labels = append(labels.Labels, c.City)
	}
	l, err := plotter.NewLabels(labels)
	if err != nil {
		return chart{}, err
	}
	l.Offset = vg.Point{X: vg.Points(6), Y: vg.Points(6)}

	h, err := medianLine(plotter.XY{X: 0, Y: medStores}, plotter.XY{X: maxChains + 1, Y: medStores})
	if err != nil {
		return chart{}, err
	}
	v, err := medianLine(plotter.XY{X: medChains, Y: 0}, plotter.XY{X: medChains, Y: maxStores * 1.1})
	if err != nil {
		return chart{}, err
	}
	p.Add(l, h, v, plotter.NewGrid())
	p.Legend.Add("median", h)
	p.Legend.Top = true
	p.X.Min, p.X.Max = 0, maxChains+1
	p.Y.Min = 0

	// top is ordered by store count, so the first candidate is the largest.
	for i, c := range top {
		if chains[i] < medChains && stores[i] > medStores {
			return chart{p, fmt.Sprintf("Best opportunity: %s with %d stores and only %d competing chains",
				c.City, c.Stores, c.Chains)}, nil
		}
	}
	return chart{p, "Competitive balance across major cities; focus on underserved secondary markets"}, nil
}
