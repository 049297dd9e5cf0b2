// Package plotting renders solved tours as PNG images.
package plotting

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/viewplan/internal/model"
)

// ErrNoPath is returned when there is nothing to draw.
var ErrNoPath = errors.New("plotting: empty path")

var (
	pathColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	stopColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Tour writes a PNG of path seen from above, with the stops marked and
// labelled by configuration ID. When the path changes altitude a second
// panel shows altitude against horizontal distance flown.
func Tour(filename, title string, path []r3.Vec, stops []model.Configuration) error {
	if len(path) == 0 {
		return ErrNoPath
	}

	top, err := topDown(title, path, stops)
	if err != nil {
		return err
	}
	row := []*plot.Plot{top}
	width := 8 * vg.Inch
	if climbs(path) {
		alt, err := altitude(path)
		if err != nil {
			return err
		}
		row = append(row, alt)
		width = 16 * vg.Inch
	}

	img := vgimg.New(width, 8*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(row),
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align([][]*plot.Plot{row}, tiles, dc)
	for i, p := range row {
		p.Draw(canvases[0][i])
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create plot file: %w", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return f.Close()
}

func topDown(title string, path []r3.Vec, stops []model.Configuration) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	pts := make(plotter.XYs, len(path))
	for i, v := range path {
		pts[i] = plotter.XY{X: v.X, Y: v.Y}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = pathColor
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("path", line)

	if len(stops) > 0 {
		xys := make(plotter.XYs, len(stops))
		labels := make([]string, len(stops))
		for i, s := range stops {
			xys[i] = plotter.XY{X: s.X, Y: s.Y}
			labels[i] = strconv.Itoa(s.ID)
		}
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, err
		}
		scatter.GlyphStyle.Color = stopColor
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(3)
		p.Add(scatter)
		p.Legend.Add("stops", scatter)

		names, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
		if err != nil {
			return nil, err
		}
		p.Add(names)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	equalAxes(p)
	return p, nil
}

func altitude(path []r3.Vec) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Altitude"
	p.X.Label.Text = "Horizontal distance (m)"
	p.Y.Label.Text = "Z (m)"

	pts := make(plotter.XYs, len(path))
	var dist float64
	for i, v := range path {
		if i > 0 {
			dist += math.Hypot(v.X-path[i-1].X, v.Y-path[i-1].Y)
		}
		pts[i] = plotter.XY{X: dist, Y: v.Z}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = pathColor
	line.Width = vg.Points(1)
	p.Add(line)
	return p, nil
}

func climbs(path []r3.Vec) bool {
	for _, v := range path[1:] {
		if v.Z != path[0].Z {
			return true
		}
	}
	return false
}

// equalAxes widens the shorter axis so one metre has the same length on
// both.
func equalAxes(p *plot.Plot) {
	dx := p.X.Max - p.X.Min
	dy := p.Y.Max - p.Y.Min
	if dx > dy {
		mid := (p.Y.Max + p.Y.Min) / 2
		p.Y.Min, p.Y.Max = mid-dx/2, mid+dx/2
	} else {
		mid := (p.X.Max + p.X.Min) / 2
		p.X.Min, p.X.Max = mid-dy/2, mid+dy/2
	}
}
