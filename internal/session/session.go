// Package session keeps the dataset snapshot and filter selection of one
// dashboard user, and recomputes the affected views when the selection changes.
package session

import (
	"slices"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/woozymasta/cngmap/internal/geo"
	"github.com/woozymasta/cngmap/internal/stations"
)

// NoMatches is shown when the selection filters out every station.
const NoMatches = "No stations match the current selection."

// Names of the views a selection change can touch.
const (
	ViewMap    = "map"
	ViewStats  = "stats"
	ViewNotice = "notice"
)

// MapView is what the map widget needs to draw the highlighted layer.
type MapView struct {
	geo.View
	// Fitted is false when the default view is used because nothing is selected.
	Fitted   bool                       `json:"fitted"`
	Selected *geojson.FeatureCollection `json:"selected"`
}

// View is the complete state of the dashboard for one session.
type View struct {
	Selection stations.Selection  `json:"selection"`
	Options   map[string][]string `json:"options"`
	Map       *MapView            `json:"map,omitempty"`
	Stats     *stations.Stats     `json:"stats,omitempty"`
	Notice    string              `json:"notice,omitempty"`
}

// Update carries only the views changed by one selection event.
type Update struct {
	Selection stations.Selection  `json:"selection"`
	Changed   []string            `json:"changed"`
	Matches   int                 `json:"matches"`
	Options   map[string][]string `json:"options,omitempty"`
	Map       *MapView            `json:"map,omitempty"`
	Stats     *stations.Stats     `json:"stats,omitempty"`
	Notice    string              `json:"notice,omitempty"`
}

// Session is the state of one dashboard user.
type Session struct {
	ID string

	data     *stations.Collection
	all      []stations.Station
	defaults geo.View

	mu       sync.Mutex
	sel      stations.Selection
	result   stations.Result
	view     View
	lastSeen time.Time
}

// New creates a session over data; defaults is the view used while
// no filter is applied.
func New(id string, data *stations.Collection, defaults geo.View) *Session {
	s := &Session{
		ID:       id,
		data:     data,
		all:      data.Stations(),
		defaults: defaults,
		lastSeen: time.Now(),
	}
	s.result, s.view = s.evaluate(stations.Selection{})

	return s
}

// Collection returns the session's dataset snapshot.
func (s *Session) Collection() *stations.Collection { return s.data }

// View returns the current full view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.view
}

// Selected returns the stations passing the current selection.
func (s *Session) Selected() []stations.Station {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.result.Stations)
}

// Select sets one attribute (empty value unsets it), recomputes the
// pipeline and reports the views that changed.
func (s *Session) Select(a stations.Attribute, value string) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel := stations.Reconcile(s.all, s.sel.With(a, value), a)
	result, view := s.evaluate(sel)

	u := Update{Selection: sel, Matches: len(result.Stations)}
	for _, attr := range stations.Attributes {
		if !slices.Equal(s.result.Options[attr], result.Options[attr]) {
			if u.Options == nil {
				u.Options = make(map[string][]string)
			}
			u.Options[attr.String()] = view.Options[attr.String()]
			u.Changed = append(u.Changed, "options."+attr.String())
		}
	}

	if !slices.Equal(s.result.Stations, result.Stations) || s.sel.IsZero() != sel.IsZero() {
		u.Map = view.Map
		u.Stats = view.Stats
		u.Changed = append(u.Changed, ViewMap, ViewStats)
	}

	if s.view.Notice != view.Notice {
		u.Notice = view.Notice
		u.Changed = append(u.Changed, ViewNotice)
	}

	s.sel, s.result, s.view = sel, result, view

	return u
}

func (s *Session) evaluate(sel stations.Selection) (stations.Result, View) {
	result := stations.Cascade(s.all, sel)

	v := View{
		Selection: sel,
		Options:   make(map[string][]string, len(stations.Attributes)),
	}
	for _, a := range stations.Attributes {
		v.Options[a.String()] = result.Options[a]
	}

	if len(result.Stations) == 0 {
		v.Notice = NoMatches
		return result, v
	}

	m := &MapView{
		View:     s.defaults,
		Selected: stations.FeatureCollection(result.Stations),
	}
	if !sel.IsZero() {
		// Non-empty by the check above.
		fitted, err := geo.Fit(stations.Points(result.Stations))
		if err == nil {
			m.View = fitted
			m.Fitted = true
		}
	}

	stats := stations.Summarize(result.Stations)
	v.Map = m
	v.Stats = &stats

	return result, v
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSeen
}
