package stations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

// ErrMalformed marks data that is not a usable station feature collection.
var ErrMalformed = errors.New("malformed station data")

// maxBody caps remote dataset downloads.
const maxBody = 64 << 20

// Loader reads station collections from local files or HTTP URLs.
type Loader struct {
	Client *http.Client
}

// NewLoader returns a loader whose HTTP requests time out after timeout.
func NewLoader(timeout time.Duration) *Loader {
	return &Loader{Client: &http.Client{Timeout: timeout}}
}

// Load reads and decodes the GeoJSON resource at source.
func (l *Loader) Load(ctx context.Context, source string) (*Collection, error) {
	var (
		data []byte
		err  error
	)

	if IsURL(source) {
		data, err = l.fetch(ctx, source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}

	stations, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}

	log.Debug().
		Str("source", source).
		Int("stations", len(stations)).
		Msg("Station dataset loaded")

	return &Collection{source: source, stations: stations}, nil
}

// IsURL reports whether source should be fetched over HTTP.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}

// Decode parses a GeoJSON feature collection into stations.
// Positions come from Point geometries, or from latitude/longitude
// properties when the geometry is null.
func Decode(data []byte) ([]Station, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	stations := make([]Station, 0, len(fc.Features))
	for i, f := range fc.Features {
		pt, err := position(f)
		if err != nil {
			return nil, fmt.Errorf("%w: feature %d: %v", ErrMalformed, i, err)
		}

		stations = append(stations, Station{
			Name:  text(f.Properties["Name"]),
			State: text(f.Properties["State"]),
			LGA:   text(f.Properties["LGA"]),
			Point: pt,
		})
	}

	return stations, nil
}

func position(f *geojson.Feature) (orb.Point, error) {
	var pt orb.Point

	switch g := f.Geometry.(type) {
	case orb.Point:
		pt = g
	case nil:
		lat, ok := number(f.Properties["latitude"])
		if !ok {
			return pt, errors.New("no geometry and no numeric latitude")
		}
		lon, ok := number(f.Properties["longitude"])
		if !ok {
			return pt, errors.New("no geometry and no numeric longitude")
		}
		pt = orb.Point{lon, lat}
	default:
		return pt, fmt.Errorf("unsupported geometry %s", g.GeoJSONType())
	}

	if math.IsNaN(pt.Lon()) || math.IsNaN(pt.Lat()) ||
		pt.Lon() < -180 || pt.Lon() > 180 || pt.Lat() < -90 || pt.Lat() > 90 {
		return pt, fmt.Errorf("coordinates out of range: %v", pt)
	}

	return pt, nil
}

// number coerces a property that may be string typed into a float.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}

	return 0, false
}

// text renders a property value; null and absent values become empty.
func text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}

	return fmt.Sprint(v)
}
