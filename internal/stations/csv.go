package stations

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/paulmach/orb"
)

// ReadCSV reads stations from a CSV with a header row.
// Columns are matched case-insensitively: Name, State, LGA and
// latitude|lat, longitude|lon|lng. Rows with unparsable coordinates fail
// the whole read.
func ReadCSV(r io.Reader) ([]Station, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}

	idx := map[string]int{"name": -1, "state": -1, "lga": -1, "lat": -1, "lon": -1}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		switch key {
		case "latitude":
			key = "lat"
		case "longitude", "lng":
			key = "lon"
		}
		if j, ok := idx[key]; ok && j == -1 {
			idx[key] = i
		}
	}
	if idx["lat"] == -1 || idx["lon"] == -1 {
		return nil, errors.New("csv: latitude/longitude columns not found")
	}

	field := func(row []string, key string) string {
		i := idx[key]
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []Station
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}

		lat, okLat := number(field(row, "lat"))
		lon, okLon := number(field(row, "lon"))
		if !okLat || !okLon {
			return nil, fmt.Errorf("%w: csv line %d: invalid coordinates", ErrMalformed, line)
		}

		out = append(out, Station{
			Name:  field(row, "name"),
			State: field(row, "state"),
			LGA:   field(row, "lga"),
			Point: orb.Point{lon, lat},
		})
	}

	return out, nil
}
