// Package placesource feeds the marker layer from OpenFreeMap vector
// tiles: it fetches the place layer around a coordinate and converts the
// named places into markers.
package placesource

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/maptile"

	"markermap/internal/markers"
	"markermap/pkg/tiles"
)

const (
	// TileURLTemplate is the OpenFreeMap vector tile endpoint.
	TileURLTemplate = "https://tiles.openfreemap.org/planet/20251203_001001_pt/%d/%d/%d.pbf"

	// placeZoom caps the zoom used for place lookups: one zoom-10 tile
	// covers a whole metro area, which is plenty for marker density.
	placeZoom = 10

	userAgent = "markermap/1.0"
)

// Place is a named feature from the vector tile place layer.
type Place struct {
	Name     string
	Class    string // city, town, village, hamlet, etc.
	Rank     int
	Location orb.Point
}

// TileData holds the places extracted from one vector tile.
type TileData struct {
	Places []Place
}

// Cache fetches vector tiles over HTTP and keeps parsed results in memory,
// deduplicating concurrent fetches of the same tile.
type Cache struct {
	client      *http.Client
	urlTemplate string

	tilesMu sync.RWMutex
	tiles   map[string]*TileData

	inFlightMu sync.Mutex
	inFlight   map[string]chan struct{}
}

// New creates a place cache against the default tile endpoint.
func New() *Cache {
	return NewWithURL(TileURLTemplate)
}

// NewWithURL creates a place cache against a custom endpoint; the template
// takes z, x, y format verbs.
func NewWithURL(urlTemplate string) *Cache {
	return &Cache{
		client:      &http.Client{},
		urlTemplate: urlTemplate,
		tiles:       make(map[string]*TileData),
		inFlight:    make(map[string]chan struct{}),
	}
}

func tileKey(z, x, y int) string {
	return fmt.Sprintf("%d/%d/%d", z, x, y)
}

// GetTile returns parsed tile data, fetching it if necessary.
func (c *Cache) GetTile(z, x, y int) (*TileData, error) {
	key := tileKey(z, x, y)

	c.tilesMu.RLock()
	if data, ok := c.tiles[key]; ok {
		c.tilesMu.RUnlock()
		return data, nil
	}
	c.tilesMu.RUnlock()

	c.inFlightMu.Lock()
	if ch, exists := c.inFlight[key]; exists {
		c.inFlightMu.Unlock()
		<-ch
		c.tilesMu.RLock()
		data := c.tiles[key]
		c.tilesMu.RUnlock()
		if data == nil {
			return nil, fmt.Errorf("concurrent fetch of %s failed", key)
		}
		return data, nil
	}

	ch := make(chan struct{})
	c.inFlight[key] = ch
	c.inFlightMu.Unlock()

	data, err := c.fetchAndParse(z, x, y)

	c.inFlightMu.Lock()
	delete(c.inFlight, key)
	close(ch)
	c.inFlightMu.Unlock()

	if err != nil {
		return nil, err
	}

	c.tilesMu.Lock()
	c.tiles[key] = data
	c.tilesMu.Unlock()

	return data, nil
}

// HasTile checks whether a tile is cached.
func (c *Cache) HasTile(z, x, y int) bool {
	c.tilesMu.RLock()
	defer c.tilesMu.RUnlock()
	_, ok := c.tiles[tileKey(z, x, y)]
	return ok
}

func (c *Cache) fetchAndParse(z, x, y int) (*TileData, error) {
	url := fmt.Sprintf(c.urlTemplate, z, x, y)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip error: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader
	}

	rawData, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	layers, err := mvt.Unmarshal(rawData)
	if err != nil {
		return nil, fmt.Errorf("mvt parse error: %w", err)
	}

	tile := maptile.New(uint32(x), uint32(y), maptile.Zoom(z))
	layers.ProjectToWGS84(tile)

	return &TileData{Places: ExtractPlaces(layers)}, nil
}

// ExtractPlaces pulls point features out of the place layer.
func ExtractPlaces(layers mvt.Layers) []Place {
	for _, layer := range layers {
		if layer.Name != "place" {
			continue
		}

		places := make([]Place, 0, len(layer.Features))
		for _, f := range layer.Features {
			place := Place{}

			if name, ok := f.Properties["name"].(string); ok {
				place.Name = name
			}
			if class, ok := f.Properties["class"].(string); ok {
				place.Class = class
			}
			if rank, ok := f.Properties["rank"].(float64); ok {
				place.Rank = int(rank)
			}

			if pt, ok := f.Geometry.(orb.Point); ok {
				place.Location = pt
				places = append(places, place)
			}
		}
		return places
	}

	return nil
}

// FilterPlacesByClass returns places matching the given classes.
func FilterPlacesByClass(places []Place, classes ...string) []Place {
	classSet := make(map[string]bool)
	for _, c := range classes {
		classSet[c] = true
	}

	filtered := make([]Place, 0)
	for _, p := range places {
		if classSet[p.Class] {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// MarkersAround collects places from the 3x3 tile neighbourhood of the
// given coordinate and converts them into markers: best-ranked first,
// capped at max. The marker icon is the place class, so a "city" place
// looks for a city icon in the atlas.
func (c *Cache) MarkersAround(lat, lon float64, zoom int, classes []string, max int) ([]markers.Marker, error) {
	if zoom > placeZoom {
		zoom = placeZoom
	}

	center := tiles.LatLonToTile(lat, lon, zoom)
	n := 1 << zoom

	var places []Place
	var lastErr error
	fetched := 0

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			tx, ty := center.X+dx, center.Y+dy
			if tx < 0 || ty < 0 || tx >= n || ty >= n {
				continue
			}

			data, err := c.GetTile(zoom, tx, ty)
			if err != nil {
				lastErr = err
				continue
			}
			fetched++
			places = append(places, data.Places...)
		}
	}

	if fetched == 0 && lastErr != nil {
		return nil, fmt.Errorf("no place tiles around %v,%v: %w", lat, lon, lastErr)
	}

	places = FilterPlacesByClass(places, classes...)
	// Rank 0 means unranked; sort it after ranked places.
	sort.SliceStable(places, func(i, j int) bool {
		ri, rj := places[i].Rank, places[j].Rank
		if ri == 0 {
			return false
		}
		if rj == 0 {
			return true
		}
		return ri < rj
	})

	if max > 0 && len(places) > max {
		places = places[:max]
	}

	out := make([]markers.Marker, 0, len(places))
	for _, p := range places {
		out = append(out, markers.Marker{
			Name:     p.Name,
			Icon:     p.Class,
			Location: p.Location,
		})
	}

	return out, nil
}
