// Package server handles HTTP requests and middleware.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/woozymasta/cngmap/internal/session"
	"github.com/woozymasta/cngmap/internal/stations"
	"github.com/woozymasta/cngmap/internal/tiles"

	"github.com/paulmach/orb/maptile"
	"github.com/rs/zerolog/log"
)

const etagCap = 64

type errorResponse struct {
	Error string `json:"error"`
}

type sessionResponse struct {
	ID   string       `json:"id"`
	View session.View `json:"view"`
}

type selectionRequest struct {
	Value *string `json:"value"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, `{"error":"could not encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// HandleIndex serves the main HTML application.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request) {
	etag := fmt.Sprintf(`"%x"`, len(s.IndexHTML))

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")
	_, _ = w.Write(s.IndexHTML)
}

// HandleFavicon serves the site icon.
func (s *ServerContext) HandleFavicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.Favicon)
}

// HandleHealth reports liveness and the number of sessions.
func (s *ServerContext) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.Sessions.Len(),
	})
}

// HandleConfig serves the map settings used by the front end.
func (s *ServerContext) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Config)
}

// HandleCreateSession loads the dataset for a new session and returns its initial view.
// A load failure is reported to the client and no session is created.
func (s *ServerContext) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Create(r.Context())
	if err != nil {
		s.Metrics.LoadFailures.Inc()
		log.Error().Err(err).Str("dataset", s.Config.Dataset).Msg("Failed to load station data")
		writeError(w, http.StatusServiceUnavailable, "could not load station data: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID, View: sess.View()})
}

// HandleSessionView returns the full current view of a session.
func (s *ServerContext) HandleSessionView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{ID: sess.ID, View: sess.View()})
}

// HandleDeleteSession drops a session.
func (s *ServerContext) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.Sessions.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// HandleSelect applies one dropdown change and returns the affected views.
func (s *ServerContext) HandleSelect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	attr, err := stations.ParseAttribute(r.PathValue("attribute"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req selectionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid selection body: "+err.Error())
		return
	}

	value := ""
	if req.Value != nil {
		value = *req.Value
	}

	u := sess.Select(attr, value)

	result := "matched"
	if u.Matches == 0 {
		result = "empty"
	}
	s.Metrics.Selections.WithLabelValues(attr.String(), result).Inc()

	log.Debug().
		Str("session", sess.ID).
		Str("attribute", attr.String()).
		Str("value", value).
		Strs("changed", u.Changed).
		Msg("Selection applied")

	writeJSON(w, http.StatusOK, u)
}

// HandleStations serves the session's full dataset layer.
func (s *ServerContext) HandleStations(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	_ = json.NewEncoder(w).Encode(sess.Collection().FeatureCollection())
}

// HandleFiltered serves the stations passing the session's selection.
func (s *ServerContext) HandleFiltered(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	_ = json.NewEncoder(w).Encode(stations.FeatureCollection(sess.Selected()))
}

// HandleTile serves a basemap tile from the WebP cache, fetching it on a miss.
// Tiles the upstream cannot provide are answered with a transparent tile.
func (s *ServerContext) HandleTile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("basemap")
	if _, ok := s.Tiles.Basemap(name); !ok {
		http.NotFound(w, r)
		return
	}

	tile, ok := parseTile(r.PathValue("z"), r.PathValue("x"), strings.TrimSuffix(r.PathValue("y"), ".webp"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	path, err := s.Tiles.Get(r.Context(), name, tile)
	if err == nil && s.serveFile(w, r, path, "image/webp") {
		s.Metrics.Tiles.WithLabelValues(name, "served").Inc()
		return
	}

	if err != nil && !errors.Is(err, tiles.ErrNoTile) {
		log.Warn().
			Err(err).
			Str("basemap", name).
			Str("tile", fmt.Sprintf("%d/%d/%d", tile.Z, tile.X, tile.Y)).
			Msg("Tile fetch failed")
	}
	s.Metrics.Tiles.WithLabelValues(name, "blank").Inc()

	// cache transparent tile
	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(s.Tiles.Blank())
}

func (s *ServerContext) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.Sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}

	return sess, true
}

func parseTile(zs, xs, ys string) (maptile.Tile, bool) {
	z, errZ := strconv.ParseUint(zs, 10, 32)
	x, errX := strconv.ParseUint(xs, 10, 32)
	y, errY := strconv.ParseUint(ys, 10, 32)
	if errZ != nil || errX != nil || errY != nil {
		return maptile.Tile{}, false
	}

	t := maptile.New(uint32(x), uint32(y), maptile.Zoom(z))
	return t, tiles.Valid(t)
}

// serveFile tries to serve a file from disk with ETag generation.
// It returns true if the file was found and served (or 304).
func (s *ServerContext) serveFile(w http.ResponseWriter, r *http.Request, path string, contentType string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}

	buf := make([]byte, 0, etagCap)
	buf = append(buf, '"')
	buf = strconv.AppendInt(buf, info.Size(), 16)
	buf = append(buf, '-')
	buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 16)
	buf = append(buf, '"')
	etag := string(buf)

	// check If-None-Match (client sent ETag)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, no-cache")

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	http.ServeFile(w, r, path)
	return true
}
