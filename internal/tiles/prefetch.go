package tiles

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"

	"github.com/paulmach/orb/maptile"
	"github.com/rs/zerolog/log"
)

// PrefetchStats counts the outcome of a prefetch run.
type PrefetchStats struct {
	Cached  int
	Fetched int
	Missing int
	Failed  int
}

// Prefetch downloads tiles of one basemap with a pool of concurrency workers.
// Existing tiles are kept unless force is set.
func (c *Cache) Prefetch(ctx context.Context, name string, tiles []maptile.Tile, concurrency int, force bool) PrefetchStats {
	if concurrency <= 0 {
		concurrency = 1
	}

	jobs := make(chan maptile.Tile)
	go func() {
		defer close(jobs)
		for _, t := range tiles {
			select {
			case jobs <- t:
			case <-ctx.Done():
				return
			}
		}
	}()

	var cached, fetched, missing, failed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				if !force {
					if info, err := os.Stat(c.Path(name, t)); err == nil && info.Size() > 0 {
						cached.Add(1)
						continue
					}
				}

				err := c.Fetch(ctx, name, t)
				switch {
				case err == nil:
					fetched.Add(1)
				case errors.Is(err, ErrNoTile):
					missing.Add(1)
				default:
					failed.Add(1)
					log.Trace().
						Err(err).
						Str("basemap", name).
						Uint32("z", uint32(t.Z)).
						Uint32("x", t.X).
						Uint32("y", t.Y).
						Msg("Failed to download tile")
				}
			}
		}()
	}
	wg.Wait()

	return PrefetchStats{
		Cached:  int(cached.Load()),
		Fetched: int(fetched.Load()),
		Missing: int(missing.Load()),
		Failed:  int(failed.Load()),
	}
}
