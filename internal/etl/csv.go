package etl

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// Record is one CSV row keyed by header name.
type Record map[string]string

func encodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeCSV reads a CSV with a header row into records.
func decodeCSV(body []byte) ([]string, []Record, error) {
	r := csv.NewReader(bytes.NewReader(body))
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("csv has no header row")
		}
		return nil, nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	r.FieldsPerRecord = len(header)

	var records []Record
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		rec := make(Record, len(header))
		for i, name := range header {
			rec[name] = fields[i]
		}
		records = append(records, rec)
	}
	return header, records, nil
}

// project orders a record's values by columns; missing columns are empty.
func project(rec Record, columns []string) []string {
	row := make([]string, len(columns))
	for i, c := range columns {
		row[i] = rec[c]
	}
	return row
}
