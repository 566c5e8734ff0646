// Package dataset loads replicate growth series from CSV plate-reader
// exports. The expected layout is a header row, a time column first, and
// one OD column per replicate:
//
//	Time,Replicate1,Replicate2,Replicate3
//	0,0.1,0.11,0.09
//	1,0.2,0.21,0.19
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Replicate is one named OD series, index-aligned with the dataset's time
// vector.
type Replicate struct {
	Name string
	OD   []float64
}

// Dataset holds one shared time vector and the replicate OD series read
// from a single CSV file. Replicates preserve column order.
type Dataset struct {
	TimeLabel  string
	Times      []float64
	Replicates []Replicate
}

// Load reads a growth-curve CSV from disk.
func Load(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer file.Close()

	ds, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Read parses a growth-curve CSV from r.
func Read(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV input")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("need a time column and at least one replicate column, got %d column(s)", len(header))
	}

	seen := make(map[string]bool, len(header)-1)
	replicates := make([]Replicate, 0, len(header)-1)
	for _, name := range header[1:] {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("replicate column %d has an empty name", len(replicates)+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate replicate column %q", name)
		}
		seen[name] = true
		replicates = append(replicates, Replicate{Name: name})
	}

	ds := &Dataset{
		TimeLabel:  strings.TrimSpace(header[0]),
		Replicates: replicates,
	}

	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		tp, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad time value %q: %w", row, record[0], err)
		}
		if n := len(ds.Times); n > 0 && tp <= ds.Times[n-1] {
			return nil, fmt.Errorf("row %d: time %g does not increase past %g", row, tp, ds.Times[n-1])
		}
		ds.Times = append(ds.Times, tp)

		for i := range ds.Replicates {
			od, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: bad OD value %q: %w",
					row, ds.Replicates[i].Name, record[i+1], err)
			}
			ds.Replicates[i].OD = append(ds.Replicates[i].OD, od)
		}
	}

	if len(ds.Times) == 0 {
		return nil, fmt.Errorf("no data rows found")
	}

	return ds, nil
}
