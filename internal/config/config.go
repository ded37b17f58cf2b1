// Package config handles configuration loading and shared data structures.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Normalize.
const (
	DefaultTitle      = "CNG STATION ACROSS NIGERIA"
	DefaultDataset    = "data/cng_locations_ng.geojson"
	DefaultLatitude   = 9.0820
	DefaultLongitude  = 8.6753
	DefaultZoom       = 6
	DefaultSessionTTL = 30 * time.Minute
	DefaultMaxSession = 1000
	DefaultTilesDir   = "tiles"
	DefaultQuality    = 80
	DefaultTimeout    = 15 * time.Second
)

// Config represents the root configuration file structure.
type Config struct {
	Title          string        `yaml:"title,omitempty" json:"title"`
	Dataset        string        `yaml:"dataset,omitempty" json:"-"`
	DatasetTimeout time.Duration `yaml:"dataset_timeout,omitempty" json:"-"`
	View           View          `yaml:"view,omitempty" json:"view"`
	Basemaps       []Basemap     `yaml:"basemaps" json:"basemaps"`
	Layers         Layers        `yaml:"layers,omitempty" json:"layers"`
	Sessions       Sessions      `yaml:"sessions,omitempty" json:"-"`
	Tiles          Tiles         `yaml:"tiles,omitempty" json:"-"`
}

// View is the map position shown when no filter is applied.
type View struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
	Zoom      int     `yaml:"zoom" json:"zoom"`
}

// Basemap is a raster tile layer offered by the map.
type Basemap struct {
	Name        string `yaml:"name" json:"name"`
	Label       string `yaml:"label,omitempty" json:"label"`
	URL         string `yaml:"url" json:"-"`
	Attribution string `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	MaxZoom     int    `yaml:"max_zoom,omitempty" json:"max_zoom"`
	// Proxy routes tiles through the local WebP cache instead of the upstream URL.
	Proxy bool `yaml:"proxy,omitempty" json:"proxy"`
	// TileURL is what the browser requests; filled by Normalize.
	TileURL string `yaml:"-" json:"tile_url"`
}

// LayerStyle describes how a station layer is drawn.
type LayerStyle struct {
	Color   string  `yaml:"color" json:"color"`
	Opacity float64 `yaml:"opacity" json:"opacity"`
	Radius  int     `yaml:"radius" json:"radius"`
}

// Layers holds the styles of the dimmed full dataset and the highlighted selection.
type Layers struct {
	All      LayerStyle `yaml:"all" json:"all"`
	Selected LayerStyle `yaml:"selected" json:"selected"`
}

// Sessions bounds the per-user state kept by the server.
type Sessions struct {
	TTL time.Duration `yaml:"ttl,omitempty"`
	Max int           `yaml:"max,omitempty"`
}

// Tiles configures the on-disk tile cache.
type Tiles struct {
	Dir     string        `yaml:"dir,omitempty"`
	Quality int           `yaml:"quality,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Load reads and parses the YAML configuration file from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes YAML configuration, fills defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a configuration with the built-in basemaps.
func Default() *Config {
	cfg := &Config{
		Basemaps: []Basemap{
			{
				Name:        "satellite",
				Label:       "Google Satellite",
				URL:         "https://mt1.google.com/vt/lyrs=y&x={x}&y={y}&z={z}",
				Attribution: "Google",
				MaxZoom:     20,
			},
			{
				Name:        "terrain",
				Label:       "Terrain",
				URL:         "https://mt1.google.com/vt/lyrs=p&x={x}&y={y}&z={z}",
				Attribution: "Google",
				MaxZoom:     20,
			},
		},
	}
	cfg.Normalize()

	return cfg
}

// Normalize fills unset fields with defaults.
func (c *Config) Normalize() {
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	if c.Dataset == "" {
		c.Dataset = DefaultDataset
	}
	if c.DatasetTimeout <= 0 {
		c.DatasetTimeout = DefaultTimeout
	}

	if c.View.Latitude == 0 && c.View.Longitude == 0 {
		c.View.Latitude = DefaultLatitude
		c.View.Longitude = DefaultLongitude
	}
	if c.View.Zoom <= 0 {
		c.View.Zoom = DefaultZoom
	}

	if c.Layers.All.Color == "" {
		c.Layers.All = LayerStyle{Color: "#808080", Opacity: 0.3, Radius: 5}
	}
	if c.Layers.Selected.Color == "" {
		c.Layers.Selected = LayerStyle{Color: "#e4572e", Opacity: 1, Radius: 7}
	}

	if c.Sessions.TTL <= 0 {
		c.Sessions.TTL = DefaultSessionTTL
	}
	if c.Sessions.Max <= 0 {
		c.Sessions.Max = DefaultMaxSession
	}

	if c.Tiles.Dir == "" {
		c.Tiles.Dir = DefaultTilesDir
	}
	if c.Tiles.Quality <= 0 || c.Tiles.Quality > 100 {
		c.Tiles.Quality = DefaultQuality
	}
	if c.Tiles.Timeout <= 0 {
		c.Tiles.Timeout = DefaultTimeout
	}

	for i := range c.Basemaps {
		b := &c.Basemaps[i]
		if b.Label == "" {
			b.Label = b.Name
		}
		if b.MaxZoom <= 0 {
			b.MaxZoom = 18
		}
		if b.Proxy {
			b.TileURL = "/tiles/" + b.Name + "/{z}/{x}/{y}"
		} else {
			b.TileURL = b.URL
		}
	}
}

// Validate reports configuration errors that defaults cannot fix.
func (c *Config) Validate() error {
	if len(c.Basemaps) == 0 {
		return errors.New("config: at least one basemap is required")
	}

	seen := make(map[string]bool, len(c.Basemaps))
	for _, b := range c.Basemaps {
		if b.Name == "" {
			return errors.New("config: basemap without name")
		}
		if strings.ContainsAny(b.Name, "/. ") {
			return fmt.Errorf("config: basemap %q: name must not contain '/', '.' or spaces", b.Name)
		}
		if seen[b.Name] {
			return fmt.Errorf("config: duplicate basemap %q", b.Name)
		}
		seen[b.Name] = true

		for _, p := range []string{"{x}", "{z}"} {
			if !strings.Contains(b.URL, p) {
				return fmt.Errorf("config: basemap %q: url template lacks %s", b.Name, p)
			}
		}
		if !strings.Contains(b.URL, "{y}") && !strings.Contains(b.URL, "{tms_y}") {
			return fmt.Errorf("config: basemap %q: url template lacks {y}", b.Name)
		}
	}

	return nil
}

// Basemap returns the basemap with the given name.
func (c *Config) Basemap(name string) (Basemap, bool) {
	for _, b := range c.Basemaps {
		if b.Name == name {
			return b, true
		}
	}

	return Basemap{}, false
}
