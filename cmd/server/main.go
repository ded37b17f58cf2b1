package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woozymasta/cngmap/internal/config"
	"github.com/woozymasta/cngmap/internal/geo"
	"github.com/woozymasta/cngmap/internal/logger"
	"github.com/woozymasta/cngmap/internal/server"
	"github.com/woozymasta/cngmap/internal/session"
	"github.com/woozymasta/cngmap/internal/stations"
	"github.com/woozymasta/cngmap/internal/tiles"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"    env:"CONFIG_FILE"    description:"Path to configuration file" default:"config.yaml"`
	Addr       string `short:"a" long:"addr"      env:"LISTEN_ADDRESS" description:"Address to listen on"       default:"0.0.0.0"`
	Port       int    `short:"p" long:"port"      env:"LISTEN_PORT"    description:"Port to listen on"          default:"8080"`
	Dataset    string `short:"d" long:"dataset"   env:"DATASET"        description:"GeoJSON file path or URL, overrides config"`
	TilesDir   string `short:"t" long:"tiles-dir" env:"TILES_DIR"      description:"Tile cache directory, overrides config"`
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

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.Dataset != "" {
		cfg.Dataset = opts.Dataset
	}
	if opts.TilesDir != "" {
		cfg.Tiles.Dir = opts.TilesDir
	}

	store := session.NewStore(stations.NewLoader(cfg.DatasetTimeout), session.Options{
		Source: cfg.Dataset,
		Defaults: geo.View{
			Latitude:  cfg.View.Latitude,
			Longitude: cfg.View.Longitude,
			Zoom:      cfg.View.Zoom,
		},
		TTL: cfg.Sessions.TTL,
		Max: cfg.Sessions.Max,
	})

	cache, err := tiles.New(cfg.Tiles, cfg.Basemaps, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tile cache")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srvCtx, err := server.NewServerContext(cfg, store, cache, reg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go store.Run(ctx, time.Minute)

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           srvCtx.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	log.Info().
		Str("addr", listenAddr).
		Str("dataset", cfg.Dataset).
		Int("basemaps", len(cfg.Basemaps)).
		Dur("session_ttl", cfg.Sessions.TTL).
		Msg("Web server started")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
