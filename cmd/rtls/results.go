package main

import (
	"fmt"
	"os"
	"path/filepath"

	rtls "github.com/milosgajdos/go-rtls"
	"github.com/milosgajdos/go-rtls/beacon"
	"github.com/milosgajdos/go-rtls/pipeline"
	"github.com/milosgajdos/go-rtls/report"
	"gonum.org/v1/plot/vg"
)

const (
	resultsFile = "localization_results.csv"
	plotFile    = "localization_plot.png"
	chartFile   = "localization_chart.html"
)

// writeResults writes the results CSV, plot and chart to dir.
// truth is plotted when given.
func writeResults(dir string, beacons []beacon.Beacon, res *pipeline.Result, truth []rtls.Point) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := writeFile(filepath.Join(dir, resultsFile), func(f *os.File) error {
		return report.WriteCSV(f, res.Positions)
	}); err != nil {
		return err
	}

	p, err := report.NewPlot(beacons, res.Positions, truth)
	if err != nil {
		return err
	}

	if err := report.SavePlot(p, 10*vg.Inch, filepath.Join(dir, plotFile)); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}

	if err := writeFile(filepath.Join(dir, chartFile), func(f *os.File) error {
		return report.RenderChart(f, beacons, res.Positions)
	}); err != nil {
		return err
	}

	logger.Printf("results written to %s", dir)

	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return f.Close()
}
