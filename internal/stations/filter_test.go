package stations

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"github.com/paulmach/orb"
)

func sample() []Station {
	return []Station{
		{Name: "StationA", State: "Lagos", LGA: "Ikeja", Point: orb.Point{3.35, 6.60}},
		{Name: "StationB", State: "Lagos", LGA: "Epe", Point: orb.Point{3.98, 6.58}},
		{Name: "StationC", State: "Kano", LGA: "Nassarawa", Point: orb.Point{8.59, 12.00}},
	}
}

func TestCascadeExample(t *testing.T) {
	all := sample()

	r := Cascade(all, Selection{}.With(State, "Lagos"))
	if !reflect.DeepEqual(r.Stations, all[:2]) {
		t.Fatalf("State=Lagos gave %+v", r.Stations)
	}

	r = Cascade(all, Selection{}.With(State, "Lagos").With(LGA, "Epe"))
	if !reflect.DeepEqual(r.Stations, all[1:2]) {
		t.Fatalf("State=Lagos, LGA=Epe gave %+v", r.Stations)
	}
}

func TestCascadeIdentity(t *testing.T) {
	all := sample()
	r := Cascade(all, Selection{})
	if !reflect.DeepEqual(r.Stations, all) {
		t.Errorf("unset selection changed the set: %+v", r.Stations)
	}
}

func TestCascadeNoMatch(t *testing.T) {
	r := Cascade(sample(), Selection{}.With(State, "Abuja"))
	if len(r.Stations) != 0 {
		t.Errorf("State=Abuja gave %d stations, want 0", len(r.Stations))
	}
	if len(r.Options[LGA]) != 0 || len(r.Options[Name]) != 0 {
		t.Errorf("downstream options = %v / %v, want empty", r.Options[LGA], r.Options[Name])
	}
}

func TestCascadeCaseSensitive(t *testing.T) {
	r := Cascade(sample(), Selection{}.With(State, "lagos"))
	if len(r.Stations) != 0 {
		t.Errorf("lowercase state matched %d stations", len(r.Stations))
	}
}

func TestCascadeOptionsNarrow(t *testing.T) {
	r := Cascade(sample(), Selection{}.With(State, "Lagos"))

	if want := []string{"Kano", "Lagos"}; !reflect.DeepEqual(r.Options[State], want) {
		t.Errorf("State options = %v, want %v", r.Options[State], want)
	}
	if want := []string{"Epe", "Ikeja"}; !reflect.DeepEqual(r.Options[LGA], want) {
		t.Errorf("LGA options = %v, want %v", r.Options[LGA], want)
	}
	if want := []string{"StationA", "StationB"}; !reflect.DeepEqual(r.Options[Name], want) {
		t.Errorf("Name options = %v, want %v", r.Options[Name], want)
	}
}

func TestFilterSoundness(t *testing.T) {
	states := []string{"Lagos", "Kano", "Oyo", "Rivers"}
	var all []Station
	for i := 0; i < 200; i++ {
		all = append(all, Station{
			Name:  fmt.Sprintf("S%03d", i),
			State: states[i%len(states)],
			LGA:   fmt.Sprintf("L%d", i%7),
			Point: orb.Point{3 + float64(i)/100, 6 + float64(i)/100},
		})
	}

	for _, st := range append(states, "Abuja") {
		got := Filter(all, State, st)
		if len(got) > len(all) {
			t.Errorf("%s: filtered set larger than input", st)
		}
		for _, s := range got {
			if s.State != st {
				t.Errorf("%s: got station in %s", st, s.State)
			}
		}
	}
}

func TestOptionsSkipsEmpty(t *testing.T) {
	all := append(sample(), Station{Name: "StationD", State: "Kano"})
	got := Options(all, LGA)
	if want := []string{"Epe", "Ikeja", "Nassarawa"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Options = %v, want %v", got, want)
	}
}

func TestReconcile(t *testing.T) {
	all := sample()

	sel := Selection{}.With(State, "Lagos").With(LGA, "Epe").With(Name, "StationB")
	sel = sel.With(State, "Kano")

	got := Reconcile(all, sel, State)
	want := Selection{}.With(State, "Kano")
	if got != want {
		t.Errorf("Reconcile = %v, want %v", got, want)
	}

	// Still valid downstream selections survive.
	sel = Selection{}.With(LGA, "Epe").With(State, "Lagos")
	if got := Reconcile(all, sel, State); got != sel {
		t.Errorf("Reconcile dropped valid LGA: %v", got)
	}

	// The changed attribute is never cleared, even without matches.
	sel = Selection{}.With(State, "Abuja")
	if got := Reconcile(all, sel, State); got != sel {
		t.Errorf("Reconcile cleared changed attribute: %v", got)
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(sample())
	want := Stats{Stations: 3, States: 2, LGAs: 3}
	if got != want {
		t.Errorf("Summarize = %+v, want %+v", got, want)
	}
	if got := Summarize(nil); got != (Stats{}) {
		t.Errorf("Summarize(nil) = %+v", got)
	}
}

func TestSelectionJSON(t *testing.T) {
	data, err := json.Marshal(Selection{}.With(State, "Lagos"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"LGA":null,"Name":null,"State":"Lagos"}` {
		t.Errorf("json = %s", data)
	}
}

func TestParseAttribute(t *testing.T) {
	for _, in := range []string{"state", "State", "STATE"} {
		a, err := ParseAttribute(in)
		if err != nil || a != State {
			t.Errorf("ParseAttribute(%q) = %v, %v", in, a, err)
		}
	}
	if a, _ := ParseAttribute("lga"); a != LGA {
		t.Errorf("lga = %v", a)
	}
	if _, err := ParseAttribute("country"); err == nil {
		t.Error("expected error for unknown attribute")
	}
}

func TestFeatureCollection(t *testing.T) {
	fc := FeatureCollection(sample()[:1])
	if len(fc.Features) != 1 {
		t.Fatalf("features = %d", len(fc.Features))
	}
	f := fc.Features[0]
	if f.Properties.MustString("State") != "Lagos" {
		t.Errorf("State = %v", f.Properties["State"])
	}
	if pt, ok := f.Geometry.(orb.Point); !ok || pt != (orb.Point{3.35, 6.60}) {
		t.Errorf("geometry = %v", f.Geometry)
	}
}
