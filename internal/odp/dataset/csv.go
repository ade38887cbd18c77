// Package dataset ingests ODP point tables from CSV files or spreadsheet
// exports and keeps the current snapshot in memory.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/example/odpfinder/internal/odp/domain"
)

var ErrMissingColumn = errors.New("dataset: required column missing")

// Columns names the header cells holding coordinates and the point name.
type Columns struct {
	Lat  string `yaml:"lat"`
	Lng  string `yaml:"lng"`
	Name string `yaml:"name"`
}

func DefaultColumns() Columns {
	return Columns{Lat: "LATITUDE", Lng: "LONGITUDE", Name: "ODP NAME"}
}

func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	if c.Lat == "" {
		c.Lat = d.Lat
	}
	if c.Lng == "" {
		c.Lng = d.Lng
	}
	if c.Name == "" {
		c.Name = d.Name
	}
	return c
}

// Stats counts what Load did with the input rows.
type Stats struct {
	Rows    int `json:"rows"`
	Loaded  int `json:"points"`
	Skipped int `json:"skipped"`
}

// NameOf returns the name cell of p, or "" when it was blank.
func (c Columns) NameOf(p domain.Point) string {
	name := strings.TrimSpace(c.withDefaults().Name)
	if v, ok := p.Attributes[name]; ok {
		return v
	}
	for k, v := range p.Attributes {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Load parses a headed CSV table. Every cell is kept as an attribute keyed by
// its trimmed header. Rows whose coordinates are blank, non-numeric or out
// of range are skipped. The point ID is the name cell, or row-N when blank.
func Load(r io.Reader, cols Columns) ([]domain.Point, Stats, error) {
	cols = cols.withDefaults()
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, Stats{}, fmt.Errorf("%w: empty input", ErrMissingColumn)
	}
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	latIdx, lngIdx, nameIdx := column(header, cols.Lat), column(header, cols.Lng), column(header, cols.Name)
	for _, req := range []struct {
		name string
		idx  int
	}{{cols.Lat, latIdx}, {cols.Lng, lngIdx}, {cols.Name, nameIdx}} {
		if req.idx < 0 {
			return nil, Stats{}, fmt.Errorf("%w: %q", ErrMissingColumn, req.name)
		}
	}

	var stats Stats
	points := make([]domain.Point, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read row %d: %w", stats.Rows+2, err)
		}
		stats.Rows++

		c := domain.Coordinate{Lat: number(cell(record, latIdx)), Lng: number(cell(record, lngIdx))}
		if !c.Valid() {
			stats.Skipped++
			continue
		}
		attrs := make(map[string]string, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			attrs[h] = strings.TrimSpace(cell(record, i))
		}
		id := attrs[header[nameIdx]]
		if id == "" {
			id = "row-" + strconv.Itoa(stats.Rows)
		}
		points = append(points, domain.Point{ID: id, Coordinate: c, Attributes: attrs})
	}
	stats.Loaded = len(points)
	return points, stats, nil
}

func column(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(h, strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

func cell(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

// number parses a coordinate cell, accepting a decimal comma. Failures
// return NaN so Coordinate.Valid rejects the row.
func number(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
