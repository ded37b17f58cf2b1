package server

import (
	"net/http"

	"github.com/woozymasta/cngmap/assets"
	"github.com/woozymasta/cngmap/internal/config"
	"github.com/woozymasta/cngmap/internal/page"
	"github.com/woozymasta/cngmap/internal/session"
	"github.com/woozymasta/cngmap/internal/tiles"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config    *config.Config
	Sessions  *session.Store
	Tiles     *tiles.Cache
	Metrics   *Metrics
	IndexHTML []byte
	Favicon   []byte

	gatherer prometheus.Gatherer
}

// NewServerContext renders the page and registers metrics on reg.
func NewServerContext(cfg *config.Config, store *session.Store, cache *tiles.Cache, reg *prometheus.Registry) (*ServerContext, error) {
	log.Info().
		Int("basemaps", len(cfg.Basemaps)).
		Str("dataset", cfg.Dataset).
		Msg("Initializing server context")

	index, err := page.Build(cfg)
	if err != nil {
		return nil, err
	}

	for _, b := range cfg.Basemaps {
		log.Debug().
			Str("basemap", b.Name).
			Bool("proxy", b.Proxy).
			Int("max_zoom", b.MaxZoom).
			Msg("Basemap configured")
	}

	log.Info().
		Int("index_bytes", len(index)).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:    cfg,
		Sessions:  store,
		Tiles:     cache,
		Metrics:   NewMetrics(reg, store.Len),
		IndexHTML: index,
		Favicon:   []byte(assets.Icon),
		gatherer:  reg,
	}, nil
}

// Routes returns the HTTP handler serving the dashboard.
func (s *ServerContext) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.HandleIndex)
	mux.HandleFunc("GET /favicon.svg", s.HandleFavicon)
	mux.HandleFunc("GET /healthz", s.HandleHealth)
	mux.HandleFunc("GET /api/config", s.HandleConfig)

	mux.HandleFunc("POST /api/sessions", s.HandleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.HandleSessionView)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.HandleDeleteSession)
	mux.HandleFunc("PUT /api/sessions/{id}/selection/{attribute}", s.HandleSelect)
	mux.HandleFunc("GET /api/sessions/{id}/stations.geojson", s.HandleStations)
	mux.HandleFunc("GET /api/sessions/{id}/filtered.geojson", s.HandleFiltered)

	mux.HandleFunc("GET /tiles/{basemap}/{z}/{x}/{y}", s.HandleTile)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	return RequestLogger(mux, s.Metrics)
}
