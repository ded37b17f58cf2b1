package stations

import (
	"encoding/json"
	"sort"
)

// Selection holds one optional equality constraint per attribute.
// An empty value means unset.
type Selection [attributeCount]string

// Get returns the selected value for a.
func (s Selection) Get(a Attribute) string { return s[a] }

// With returns a copy of s with a set to value.
func (s Selection) With(a Attribute, value string) Selection {
	s[a] = value
	return s
}

// IsZero reports whether no constraint is set.
func (s Selection) IsZero() bool { return s == Selection{} }

// MarshalJSON encodes the selection keyed by attribute name.
func (s Selection) MarshalJSON() ([]byte, error) {
	m := make(map[string]*string, attributeCount)
	for _, a := range Attributes {
		if v := s[a]; v != "" {
			m[a.String()] = &v
		} else {
			m[a.String()] = nil
		}
	}

	return json.Marshal(m)
}

// Filter narrows stations to those whose attribute equals value exactly.
// An empty value passes stations through unchanged.
func Filter(stations []Station, a Attribute, value string) []Station {
	if value == "" {
		return stations
	}

	out := make([]Station, 0, len(stations))
	for _, s := range stations {
		if a.Of(s) == value {
			out = append(out, s)
		}
	}

	return out
}

// Options returns the sorted distinct non-empty values of a.
func Options(stations []Station, a Attribute) []string {
	seen := make(map[string]struct{})
	for _, s := range stations {
		if v := a.Of(s); v != "" {
			seen[v] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)

	return out
}

// Result is the outcome of a cascading filter run.
type Result struct {
	// Options per attribute, taken from the working set before that
	// attribute's constraint was applied.
	Options  [attributeCount][]string
	Stations []Station
}

// Cascade applies the selection in attribute order, each constraint
// narrowing the result of the previous one.
func Cascade(stations []Station, sel Selection) Result {
	var r Result
	working := stations
	for _, a := range Attributes {
		r.Options[a] = Options(working, a)
		working = Filter(working, a, sel[a])
	}
	r.Stations = working

	return r
}

// Reconcile clears constraints downstream of changed that are no longer
// offered by the cascade. The changed attribute itself is kept as chosen.
func Reconcile(stations []Station, sel Selection, changed Attribute) Selection {
	working := stations
	for _, a := range Attributes {
		if a > changed && sel[a] != "" && !contains(Options(working, a), sel[a]) {
			sel[a] = ""
		}
		working = Filter(working, a, sel[a])
	}

	return sel
}

func contains(sorted []string, v string) bool {
	i := sort.SearchStrings(sorted, v)
	return i < len(sorted) && sorted[i] == v
}

// Stats summarizes a set of stations.
type Stats struct {
	Stations int `json:"stations"`
	States   int `json:"states"`
	LGAs     int `json:"lgas"`
}

// Summarize counts stations and distinct non-empty states and LGAs.
func Summarize(stations []Station) Stats {
	return Stats{
		Stations: len(stations),
		States:   len(Options(stations, State)),
		LGAs:     len(Options(stations, LGA)),
	}
}
