package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/milosgajdos/go-rtls/beacon"
	"github.com/milosgajdos/go-rtls/pipeline"
)

// NewChart creates new interactive scatter chart of beacons, raw and smoothed positions
func NewChart(beacons []beacon.Beacon, positions []pipeline.Position) *charts.Scatter {
	beaconData := make([]opts.ScatterData, 0, len(beacons))
	for _, b := range beacons {
		beaconData = append(beaconData, opts.ScatterData{Name: b.ID, Value: []interface{}{b.X, b.Y}})
	}

	rawData := make([]opts.ScatterData, 0, len(positions))
	smoothData := make([]opts.ScatterData, 0, len(positions))
	degenerate := 0
	for _, p := range positions {
		rawData = append(rawData, opts.ScatterData{Value: []interface{}{p.Raw.X, p.Raw.Y}})
		smoothData = append(smoothData, opts.ScatterData{Value: []interface{}{p.Smoothed.X, p.Smoothed.Y}})
		if p.Degenerate {
			degenerate++
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "RTLS Localization", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "RTLS Localization Results", Subtitle: fmt.Sprintf("positions=%d degenerate=%d", len(positions), degenerate)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)

	scatter.AddSeries("beacons", beaconData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))
	scatter.AddSeries("raw", rawData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	scatter.AddSeries("smoothed", smoothData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	return scatter
}

// RenderChart renders the chart of beacons and positions as HTML to w
func RenderChart(w io.Writer, beacons []beacon.Beacon, positions []pipeline.Position) error {
	return NewChart(beacons, positions).Render(w)
}
