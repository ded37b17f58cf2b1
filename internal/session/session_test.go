package session

import (
	"slices"
	"testing"

	"github.com/paulmach/orb"
	"github.com/woozymasta/cngmap/internal/geo"
	"github.com/woozymasta/cngmap/internal/stations"
)

var defaults = geo.View{Latitude: 9.0820, Longitude: 8.6753, Zoom: 6}

func sampleCollection() *stations.Collection {
	return stations.NewCollection("test", []stations.Station{
		{Name: "StationA", State: "Lagos", LGA: "Ikeja", Point: orb.Point{3.35, 6.60}},
		{Name: "StationB", State: "Lagos", LGA: "Epe", Point: orb.Point{3.98, 6.58}},
		{Name: "StationC", State: "Kano", LGA: "Nassarawa", Point: orb.Point{8.59, 12.00}},
	})
}

func TestNewSessionDefaultView(t *testing.T) {
	s := New("id", sampleCollection(), defaults)
	v := s.View()

	if v.Map == nil || v.Stats == nil {
		t.Fatalf("initial view lacks map or stats: %+v", v)
	}
	if v.Map.Fitted || v.Map.View != defaults {
		t.Errorf("initial map view = %+v, want defaults", v.Map)
	}
	if v.Stats.Stations != 3 || v.Stats.States != 2 || v.Stats.LGAs != 3 {
		t.Errorf("stats = %+v", v.Stats)
	}
	if len(v.Map.Selected.Features) != 3 {
		t.Errorf("selected features = %d, want 3", len(v.Map.Selected.Features))
	}
	if v.Notice != "" {
		t.Errorf("notice = %q, want empty", v.Notice)
	}
}

func TestSelectNarrowsAndFits(t *testing.T) {
	s := New("id", sampleCollection(), defaults)

	u := s.Select(stations.State, "Lagos")
	if u.Map == nil || !u.Map.Fitted {
		t.Fatalf("map not refitted: %+v", u.Map)
	}
	// Lagos spans 0.63 degrees of longitude.
	if u.Map.Zoom != 8 {
		t.Errorf("zoom = %d, want 8", u.Map.Zoom)
	}
	if u.Stats == nil || u.Stats.Stations != 2 || u.Stats.States != 1 {
		t.Errorf("stats = %+v", u.Stats)
	}
	if _, ok := u.Options["State"]; ok {
		t.Error("State options reported as changed")
	}
	if got := u.Options["LGA"]; !slices.Equal(got, []string{"Epe", "Ikeja"}) {
		t.Errorf("LGA options = %v", got)
	}

	u = s.Select(stations.LGA, "Epe")
	if u.Matches != 1 {
		t.Errorf("matches = %d, want 1", u.Matches)
	}
	if u.Map == nil || u.Map.Zoom != 12 {
		t.Errorf("single station map = %+v, want zoom 12", u.Map)
	}
	if len(s.Selected()) != 1 || s.Selected()[0].Name != "StationB" {
		t.Errorf("selected = %+v", s.Selected())
	}
	if _, ok := u.Options["LGA"]; ok {
		t.Error("LGA options changed by its own selection")
	}
}

func TestSelectNoMatches(t *testing.T) {
	s := New("id", sampleCollection(), defaults)

	u := s.Select(stations.State, "Abuja")
	if u.Notice != NoMatches {
		t.Errorf("notice = %q", u.Notice)
	}
	if u.Matches != 0 {
		t.Errorf("matches = %d, want 0", u.Matches)
	}
	if u.Map != nil || u.Stats != nil {
		t.Errorf("empty result should omit map and stats: %+v", u)
	}
	if !slices.Contains(u.Changed, ViewMap) || !slices.Contains(u.Changed, ViewNotice) {
		t.Errorf("changed = %v", u.Changed)
	}

	v := s.View()
	if v.Map != nil || v.Notice != NoMatches {
		t.Errorf("view = %+v", v)
	}

	// Clearing the selection restores the default view and drops the notice.
	u = s.Select(stations.State, "")
	if u.Map == nil || u.Map.Fitted {
		t.Errorf("map = %+v, want default", u.Map)
	}
	if !slices.Contains(u.Changed, ViewNotice) || u.Notice != "" {
		t.Errorf("notice not cleared: %+v", u)
	}
}

func TestSelectClearsStaleDownstream(t *testing.T) {
	s := New("id", sampleCollection(), defaults)
	s.Select(stations.State, "Lagos")
	s.Select(stations.LGA, "Epe")

	u := s.Select(stations.State, "Kano")
	if got := u.Selection.Get(stations.LGA); got != "" {
		t.Errorf("LGA = %q, want cleared", got)
	}
	if u.Stats == nil || u.Stats.Stations != 1 {
		t.Errorf("stats = %+v", u.Stats)
	}
}

func TestSelectSameValueChangesNothing(t *testing.T) {
	s := New("id", sampleCollection(), defaults)
	s.Select(stations.State, "Kano")

	u := s.Select(stations.State, "Kano")
	if len(u.Changed) != 0 {
		t.Errorf("changed = %v, want none", u.Changed)
	}
}

func TestSelectDeterministic(t *testing.T) {
	a := New("a", sampleCollection(), defaults)
	b := New("b", sampleCollection(), defaults)

	for _, s := range []*Session{a, b} {
		s.Select(stations.State, "Lagos")
		s.Select(stations.LGA, "Ikeja")
		s.Select(stations.Name, "StationA")
	}

	if !slices.Equal(a.Selected(), b.Selected()) {
		t.Errorf("same selections gave %v and %v", a.Selected(), b.Selected())
	}
}
