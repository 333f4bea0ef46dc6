// Package tileserver caches raster basemap tiles on disk and exposes them,
// together with the live marker set, over a local HTTP API.
package tileserver

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"markermap/pkg/tiles"
)

const userAgent = "markermap/1.0 (educational project)"

// TileCache manages tile fetching and disk caching with background
// prefetch workers.
type TileCache struct {
	cacheDir   string
	client     *http.Client
	inFlight   map[string]chan struct{}
	inFlightMu sync.Mutex
	fetchQueue chan tiles.TileCoord
	wg         sync.WaitGroup
}

// NewTileCache creates a tile cache rooted at cacheDir with the given
// number of prefetch workers.
func NewTileCache(cacheDir string, workers int) (*TileCache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	tc := &TileCache{
		cacheDir: cacheDir,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		inFlight:   make(map[string]chan struct{}),
		fetchQueue: make(chan tiles.TileCoord, 1000),
	}

	for i := 0; i < workers; i++ {
		tc.wg.Add(1)
		go tc.worker()
	}

	return tc, nil
}

func (tc *TileCache) worker() {
	defer tc.wg.Done()
	for coord := range tc.fetchQueue {
		tc.fetchTile(coord)
	}
}

// Close shuts down the prefetch workers.
func (tc *TileCache) Close() {
	close(tc.fetchQueue)
	tc.wg.Wait()
}

func (tc *TileCache) tilePath(coord tiles.TileCoord) string {
	return filepath.Join(tc.cacheDir, fmt.Sprintf("%d_%d_%d.png", coord.Zoom, coord.X, coord.Y))
}

// GetTile returns tile data, fetching and caching it if necessary, and
// queues the neighbours for prefetching.
func (tc *TileCache) GetTile(coord tiles.TileCoord) ([]byte, error) {
	if data, err := os.ReadFile(tc.tilePath(coord)); err == nil {
		return data, nil
	}

	data, err := tc.fetchTile(coord)
	if err != nil {
		return nil, err
	}

	tc.queuePrefetch(coord)

	return data, nil
}

// fetchTile downloads a tile and caches it on disk, deduplicating
// concurrent fetches of the same coordinate.
func (tc *TileCache) fetchTile(coord tiles.TileCoord) ([]byte, error) {
	key := coord.String()
	path := tc.tilePath(coord)

	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	}

	tc.inFlightMu.Lock()
	if ch, exists := tc.inFlight[key]; exists {
		tc.inFlightMu.Unlock()
		<-ch // Wait for the in-flight request to complete
		return os.ReadFile(path)
	}

	ch := make(chan struct{})
	tc.inFlight[key] = ch
	tc.inFlightMu.Unlock()

	defer func() {
		tc.inFlightMu.Lock()
		delete(tc.inFlight, key)
		close(ch)
		tc.inFlightMu.Unlock()
	}()

	req, err := http.NewRequest("GET", coord.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := tc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tile server returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tile data: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		// Log but don't fail - we still have the data
		fmt.Printf("Warning: failed to cache tile: %v\n", err)
	}

	return data, nil
}

func (tc *TileCache) queuePrefetch(coord tiles.TileCoord) {
	for _, adj := range tiles.GetAdjacentTiles(coord) {
		select {
		case tc.fetchQueue <- adj:
		default:
			// Queue full, skip this tile
		}
	}
}

// PrefetchArea queues tiles around a viewport (about 5x the visible area).
func (tc *TileCache) PrefetchArea(centerLat, centerLon float64, zoom int, viewportWidth, viewportHeight int) {
	for _, coord := range tiles.GetPrefetchTiles(centerLat, centerLon, zoom, viewportWidth, viewportHeight) {
		select {
		case tc.fetchQueue <- coord:
		default:
			// Queue full
		}
	}
}

// IsCached checks whether a tile is already on disk.
func (tc *TileCache) IsCached(coord tiles.TileCoord) bool {
	_, err := os.Stat(tc.tilePath(coord))
	return err == nil
}
