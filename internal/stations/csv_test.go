package stations

import (
	"errors"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

func TestReadCSV(t *testing.T) {
	in := `Name,State,LGA,Latitude,Lng
StationA,Lagos,Ikeja, 6.6018,3.3515
"Station, B",Lagos,Epe,6.5841,3.9834
StationC,Kano,,12.0022,8.5920
`
	got, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("stations = %d, want 3", len(got))
	}
	if got[0].Point != (orb.Point{3.3515, 6.6018}) {
		t.Errorf("StationA point = %v", got[0].Point)
	}
	if got[1].Name != "Station, B" {
		t.Errorf("quoted name = %q", got[1].Name)
	}
	if got[2].LGA != "" || got[2].State != "Kano" {
		t.Errorf("StationC = %+v", got[2])
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"no coordinate columns", "Name,State\nA,Lagos\n"},
		{"bad latitude", "Name,latitude,longitude\nA,north,3\n"},
		{"nan latitude", "Name,latitude,longitude\nA,NaN,3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.in)); err == nil {
				t.Error("expected error")
			}
		})
	}

	_, err := ReadCSV(strings.NewReader("latitude,longitude\nx,1\n"))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
}
