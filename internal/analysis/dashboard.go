package analysis

import (
	"os"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// dashboard tiles several plots into one PNG, row by row. Nil panels are
// left blank.
type dashboard struct {
	panels [][]*plot.Plot
}

// Save renders the dashboard as a PNG of size w x h.
func (d dashboard) Save(w, h vg.Length, file string) error {
	if len(d.panels) == 0 || len(d.panels[0]) == 0 {
		return eris.New("analysis: empty dashboard")
	}
	img := vgimg.New(w, h)
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows:      len(d.panels),
		Cols:      len(d.panels[0]),
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(d.panels, tiles, dc)
	for j, row := range d.panels {
		for i, p := range row {
			if p != nil {
				p.Draw(canvases[j][i])
			}
		}
	}

	f, err := os.Create(file)
	if err != nil {
		return eris.Wrap(err, "analysis: create dashboard file")
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrap(err, "analysis: write dashboard")
	}
	return eris.Wrap(f.Close(), "analysis: close dashboard file")
}
