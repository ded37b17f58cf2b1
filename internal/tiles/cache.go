// Package tiles proxies raster basemap tiles and keeps them on disk as WebP.
package tiles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/woozymasta/cngmap/internal/config"

	"github.com/chai2010/webp"
	"github.com/paulmach/orb/maptile"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TileSize is the edge of a standard raster tile in pixels.
const TileSize = 256

var (
	// ErrNoTile means the upstream has no usable image for the tile.
	ErrNoTile = errors.New("tile not available")
	// ErrUnknownBasemap is returned for names missing from the configuration.
	ErrUnknownBasemap = errors.New("unknown basemap")
)

// Cache fetches tiles from basemap URL templates and stores them under Dir.
type Cache struct {
	dir      string
	client   *http.Client
	quality  float32
	basemaps map[string]config.Basemap
	blank    []byte
}

// New creates a cache for the configured basemaps.
func New(cfg config.Tiles, basemaps []config.Basemap, client *http.Client) (*Cache, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	blank, err := transparentTile()
	if err != nil {
		return nil, fmt.Errorf("encode transparent tile: %w", err)
	}

	c := &Cache{
		dir:      cfg.Dir,
		client:   client,
		quality:  float32(cfg.Quality),
		basemaps: make(map[string]config.Basemap, len(basemaps)),
		blank:    blank,
	}
	for _, b := range basemaps {
		c.basemaps[b.Name] = b
	}

	return c, nil
}

// Blank returns a transparent WebP tile.
func (c *Cache) Blank() []byte { return c.blank }

// Basemap returns the configuration of a cached basemap.
func (c *Cache) Basemap(name string) (config.Basemap, bool) {
	b, ok := c.basemaps[name]
	return b, ok
}

// Path returns where a tile is stored on disk.
func (c *Cache) Path(name string, t maptile.Tile) string {
	return filepath.Join(
		c.dir,
		name,
		strconv.FormatUint(uint64(t.Z), 10),
		strconv.FormatUint(uint64(t.X), 10),
		strconv.FormatUint(uint64(t.Y), 10)+".webp",
	)
}

// Get returns the path of the cached tile, downloading it on a miss.
func (c *Cache) Get(ctx context.Context, name string, t maptile.Tile) (string, error) {
	path := c.Path(name, t)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path, nil
	}

	if err := c.Fetch(ctx, name, t); err != nil {
		return "", err
	}

	return path, nil
}

// Fetch downloads a tile, converts it to WebP and writes it to the cache,
// replacing any existing file.
func (c *Cache) Fetch(ctx context.Context, name string, t maptile.Tile) error {
	b, ok := c.basemaps[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBasemap, name)
	}
	if !Valid(t) || int(t.Z) > b.MaxZoom {
		return fmt.Errorf("%w: %d/%d/%d out of range", ErrNoTile, t.Z, t.X, t.Y)
	}

	url := BuildURL(b.URL, t)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		log.Trace().Str("url", url).Msg("Tile not found (404)")
		return ErrNoTile
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tile %s: status code %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		log.Trace().Err(err).Str("url", url).Msg("Failed to decode image")
		return ErrNoTile
	}

	// Filter out empty/1px tiles often returned by map servers for OOB areas
	if img.Bounds().Dx() <= 1 {
		log.Trace().Str("url", url).Msg("Filtered empty tile")
		return ErrNoTile
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: false, Quality: c.quality}); err != nil {
		return fmt.Errorf("encode webp: %w", err)
	}

	return writeAtomic(c.Path(name, t), buf.Bytes())
}

// Valid reports whether x and y fall inside the grid of zoom z.
func Valid(t maptile.Tile) bool {
	if t.Z > 30 {
		return false
	}
	n := uint32(1) << uint32(t.Z)
	return t.X < n && t.Y < n
}

// BuildURL fills a tile URL template. {tms_y} is the y index counted from the south.
func BuildURL(tpl string, t maptile.Tile) string {
	s := strings.ReplaceAll(tpl, "{z}", strconv.FormatUint(uint64(t.Z), 10))
	s = strings.ReplaceAll(s, "{x}", strconv.FormatUint(uint64(t.X), 10))
	s = strings.ReplaceAll(s, "{y}", strconv.FormatUint(uint64(t.Y), 10))

	if strings.Contains(s, "{tms_y}") {
		maxCoord := uint32(1)<<uint32(t.Z) - 1
		s = strings.ReplaceAll(s, "{tms_y}", strconv.FormatUint(uint64(maxCoord-t.Y), 10))
	}

	return s
}

// writeAtomic writes through a temp file so concurrent readers never see partial tiles.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".tile-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, path)
}

func transparentTile() ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, TileSize, TileSize))

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
