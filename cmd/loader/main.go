package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woozymasta/cngmap/internal/config"
	"github.com/woozymasta/cngmap/internal/geo"
	"github.com/woozymasta/cngmap/internal/logger"
	"github.com/woozymasta/cngmap/internal/stations"
	"github.com/woozymasta/cngmap/internal/tiles"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string   `short:"c" long:"config"       env:"CONFIG_FILE"  description:"Path to configuration file" default:"config.yaml"`
	Dataset     string   `short:"d" long:"dataset"      env:"DATASET"      description:"GeoJSON file path or URL, overrides config"`
	Limit       []string `short:"l" long:"limit"        env:"LIMIT_NAMES"  description:"Limit prefetch to specific basemap names"`
	Concurrency int      `short:"p" long:"concurrency"  env:"CONCURRENCY"  description:"Concurrency" default:"50"`
	MinZoom     int      `long:"min-zoom"               env:"MIN_ZOOM"     description:"Lowest zoom level to prefetch" default:"4"`
	ZoomLimit   int      `short:"z" long:"zoom-limit"   env:"ZOOM_LIMIT"   description:"Highest zoom level to prefetch" default:"10"`
	Margin      float64  `short:"m" long:"margin"       env:"MARGIN"       description:"Degrees added around the dataset extent" default:"0.5"`
	CheckOnly   bool     `short:"C" long:"check-only"   description:"Validate the dataset without downloading tiles"`
	Force       bool     `short:"f" long:"force"        description:"Force overwrite of existing tiles"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.Dataset != "" {
		cfg.Dataset = opts.Dataset
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	data, err := stations.NewLoader(cfg.DatasetTimeout).Load(ctx, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load station data")
	}
	if data.Len() == 0 {
		log.Fatal().Str("dataset", cfg.Dataset).Msg("Dataset has no stations")
	}

	all := data.Stations()
	view, _ := geo.Fit(stations.Points(all))
	summary := stations.Summarize(all)
	log.Info().
		Int("stations", summary.Stations).
		Int("states", summary.States).
		Int("lgas", summary.LGAs).
		Float64("center_lat", view.Latitude).
		Float64("center_lon", view.Longitude).
		Int("zoom", view.Zoom).
		Msg("Dataset validated")

	if opts.CheckOnly {
		return
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
		Timeout: cfg.Tiles.Timeout,
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 50
	}

	cache, err := tiles.New(cfg.Tiles, cfg.Basemaps, client)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tile cache")
	}

	// Filter basemaps if limit is set
	basemaps := cfg.Basemaps
	if len(opts.Limit) > 0 {
		basemaps = make([]config.Basemap, 0, len(opts.Limit))
		seen := make(map[string]bool)
		for _, name := range opts.Limit {
			if seen[name] {
				continue
			}
			seen[name] = true

			if b, ok := cfg.Basemap(name); ok {
				basemaps = append(basemaps, b)
			} else {
				log.Error().
					Str("name", name).
					Msg("Basemap specified in --limit not found in configuration")
			}
		}
	}

	bound := data.Bound().Pad(opts.Margin)

	if opts.ZoomLimit > geo.MaxZoom {
		log.Warn().
			Int("zoom_limit", opts.ZoomLimit).
			Int("max_zoom", geo.MaxZoom).
			Msg("Zoom limit above the supported maximum, clamping")
		opts.ZoomLimit = geo.MaxZoom
	}

	for _, b := range basemaps {
		maxZoom := min(opts.ZoomLimit, b.MaxZoom)
		cover := geo.CoverTiles(bound, opts.MinZoom, maxZoom)

		log.Info().
			Str("basemap", b.Name).
			Int("tiles", len(cover)).
			Int("min_zoom", opts.MinZoom).
			Int("max_zoom", maxZoom).
			Msg("Starting tile prefetch")

		start := time.Now()
		st := cache.Prefetch(ctx, b.Name, cover, opts.Concurrency, opts.Force)

		log.Info().
			Str("basemap", b.Name).
			Int("cached", st.Cached).
			Int("fetched", st.Fetched).
			Int("missing", st.Missing).
			Int("failed", st.Failed).
			Dur("took", time.Since(start)).
			Msg("Tile prefetch finished")

		if ctx.Err() != nil {
			log.Warn().Msg("Interrupted")
			return
		}
	}

	log.Info().Str("dir", cfg.Tiles.Dir).Msg("Loader finished successfully")
}
