package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSV column names
const (
	ColTimestamp  = "timestamp"
	ColNearest    = "nearest"
	ColInstanceID = "instanceId"
)

// ReadCSV reads records from CSV data with a header row.
// The header must contain timestamp, nearest and instanceId columns; their order
// and case do not matter and other columns are ignored.
// It returns error if a column is missing or a timestamp is not an integer.
func ReadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	indices := make(map[string]int)
	for i, h := range header {
		indices[strings.ToLower(strings.TrimSpace(h))] = i
	}

	cols := make([]int, 3)
	for i, name := range []string{ColTimestamp, ColNearest, ColInstanceID} {
		idx, ok := indices[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("missing column: %s", name)
		}
		cols[i] = idx
	}

	var records []Record
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		get := func(i int) string {
			if cols[i] < len(row) {
				return row[cols[i]]
			}
			return ""
		}

		ts, err := strconv.ParseInt(strings.TrimSpace(get(0)), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid timestamp: %w", line, err)
		}

		records = append(records, Record{
			Timestamp:  ts,
			Nearest:    get(1),
			InstanceID: strings.TrimSpace(get(2)),
		})
	}

	return records, nil
}

// WriteCSV writes records as CSV data with a header row.
func WriteCSV(w io.Writer, records []Record) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{ColTimestamp, ColNearest, ColInstanceID}); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{strconv.FormatInt(r.Timestamp, 10), r.Nearest, r.InstanceID}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()

	return writer.Error()
}
