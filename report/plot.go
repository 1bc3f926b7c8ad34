package report

import (
	"fmt"
	"image/color"
	"math"

	rtls "github.com/milosgajdos/go-rtls"
	"github.com/milosgajdos/go-rtls/beacon"
	"github.com/milosgajdos/go-rtls/pipeline"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// NewPlot creates new plot of the localization results from the following data sources:
// beacons:   beacon positions
// positions: raw and smoothed positions
// truth:     true tag positions; it is optional
// It returns error if beacons is empty or if any of the plotters fails to be created.
func NewPlot(beacons []beacon.Beacon, positions []pipeline.Position, truth []rtls.Point) (*plot.Plot, error) {
	if len(beacons) == 0 {
		return nil, fmt.Errorf("no beacons supplied")
	}

	p := plot.New()

	p.Title.Text = "RTLS Localization Results"
	p.X.Label.Text = "X Position (m)"
	p.Y.Label.Text = "Y Position (m)"
	p.Add(plotter.NewGrid())

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	pts := make([]rtls.Point, len(beacons))
	for i, b := range beacons {
		pts[i] = b.Pos()
	}

	beaconScatter, err := plotter.NewScatter(makePoints(pts))
	if err != nil {
		return nil, fmt.Errorf("failed to create beacon scatter: %w", err)
	}
	beaconScatter.GlyphStyle.Color = color.RGBA{R: 255, A: 255}
	beaconScatter.Shape = draw.PyramidGlyph{}
	beaconScatter.GlyphStyle.Radius = vg.Points(5)

	p.Add(beaconScatter)
	p.Legend.Add("beacons", beaconScatter)

	if len(truth) > 0 {
		truthLine, err := plotter.NewLine(makePoints(truth))
		if err != nil {
			return nil, fmt.Errorf("failed to create truth line: %w", err)
		}
		truthLine.LineStyle.Color = color.RGBA{G: 160, A: 255}
		truthLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

		p.Add(truthLine)
		p.Legend.Add("truth", truthLine)
	}

	if len(positions) == 0 {
		equalAxes(p)
		return p, nil
	}

	raw := make([]rtls.Point, len(positions))
	smoothed := make([]rtls.Point, len(positions))
	for i, pos := range positions {
		raw[i] = pos.Raw
		smoothed[i] = pos.Smoothed
	}

	rawScatter, err := plotter.NewScatter(makePoints(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create raw scatter: %w", err)
	}
	rawScatter.GlyphStyle.Color = color.RGBA{R: 169, G: 169, B: 169, A: 255}
	rawScatter.Shape = draw.CrossGlyph{}
	rawScatter.GlyphStyle.Radius = vg.Points(2)

	p.Add(rawScatter)
	p.Legend.Add("raw", rawScatter)

	smoothLine, smoothScatter, err := plotter.NewLinePoints(makePoints(smoothed))
	if err != nil {
		return nil, fmt.Errorf("failed to create smoothed line: %w", err)
	}
	smoothLine.LineStyle.Color = color.RGBA{B: 255, A: 255}
	smoothScatter.GlyphStyle.Color = color.RGBA{B: 255, A: 255}
	smoothScatter.GlyphStyle.Radius = vg.Points(2)

	p.Add(smoothLine, smoothScatter)
	p.Legend.Add("smoothed", smoothLine, smoothScatter)

	equalAxes(p)

	return p, nil
}

// SavePlot saves p to file. The image format is derived from the file extension.
func SavePlot(p *plot.Plot, size vg.Length, file string) error {
	return p.Save(size, size, file)
}

// equalAxes sets the same range on both axes
func equalAxes(p *plot.Plot) {
	lo := math.Min(p.X.Min, p.Y.Min)
	hi := math.Max(p.X.Max, p.Y.Max)
	pad := 0.05 * (hi - lo)

	p.X.Min, p.Y.Min = lo-pad, lo-pad
	p.X.Max, p.Y.Max = hi+pad, hi+pad
}

func makePoints(pts []rtls.Point) plotter.XYs {
	xys := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		xys[i].X = pt.X
		xys[i].Y = pt.Y
	}

	return xys
}
