// Package report writes localization results as CSV, PNG plots and HTML charts.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/milosgajdos/go-rtls/pipeline"
	"github.com/milosgajdos/go-rtls/record"
)

// Header returns the CSV header written by WriteCSV
func Header() []string {
	h := []string{"index", "timestamp", "tag"}
	for i := 1; i <= record.Blocks; i++ {
		h = append(h, fmt.Sprintf("instance_%d", i), fmt.Sprintf("rssi_%d", i))
	}
	for i := 1; i <= record.Blocks; i++ {
		h = append(h, fmt.Sprintf("X%d", i), fmt.Sprintf("Y%d", i))
	}
	for i := 1; i <= record.Blocks; i++ {
		h = append(h, fmt.Sprintf("d%d", i))
	}

	return append(h, "raw_x", "raw_y", "degenerate", "x", "y")
}

// WriteCSV writes positions joined with their source observations as CSV data with a header row.
func WriteCSV(w io.Writer, positions []pipeline.Position) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header()); err != nil {
		return err
	}

	for _, p := range positions {
		if err := writer.Write(row(p)); err != nil {
			return err
		}
	}

	writer.Flush()

	return writer.Error()
}

func row(p pipeline.Position) []string {
	o := p.Observation
	r := []string{strconv.Itoa(o.Index), strconv.FormatInt(o.Timestamp, 10), o.TagID}

	for _, rd := range o.Readings {
		r = append(r, rd.BeaconID, strconv.Itoa(rd.RSSI))
	}
	for _, a := range o.Anchors {
		r = append(r, ftoa(a.X), ftoa(a.Y))
	}
	for _, d := range p.Distances {
		r = append(r, ftoa(d))
	}

	return append(r, ftoa(p.Raw.X), ftoa(p.Raw.Y), strconv.FormatBool(p.Degenerate), ftoa(p.Smoothed.X), ftoa(p.Smoothed.Y))
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
