// Package tiles provides slippy-map tile coordinates and the Web Mercator
// projection shared by the camera and the marker layer.
package tiles

import (
	"fmt"
	"math"
)

const (
	// TileSize is the edge length of a raster tile in pixels.
	TileSize = 256

	// MaxLat is the latitude cutoff of the Web Mercator projection.
	MaxLat = 85.0511

	MinZoom = 2
	MaxZoom = 18
)

// TileCoord identifies a tile in the slippy map scheme.
type TileCoord struct {
	X    int
	Y    int
	Zoom int
}

func (t TileCoord) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Zoom, t.X, t.Y)
}

// URL returns the raster tile URL (no-labels basemap, so markers stay legible).
func (t TileCoord) URL() string {
	return fmt.Sprintf("https://basemaps.cartocdn.com/rastertiles/voyager_nolabels/%d/%d/%d.png", t.Zoom, t.X, t.Y)
}

// Project converts latitude/longitude to Web Mercator unit coordinates:
// x and y in [0, 1], origin at the north-west corner of the world.
func Project(lat, lon float64) (x, y float64) {
	x = (lon + 180.0) / 360.0
	latRad := lat * math.Pi / 180.0
	y = (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0
	return x, y
}

// Unproject converts Web Mercator unit coordinates back to latitude/longitude.
func Unproject(x, y float64) (lat, lon float64) {
	lon = x*360.0 - 180.0
	lat = math.Atan(math.Sinh(math.Pi*(1-2*y))) * 180.0 / math.Pi
	return lat, lon
}

// ClampLat limits latitude to the projectable Mercator range.
func ClampLat(lat float64) float64 {
	if lat > MaxLat {
		return MaxLat
	}
	if lat < -MaxLat {
		return -MaxLat
	}
	return lat
}

// WrapLon wraps longitude into [-180, 180].
func WrapLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

func clampTile(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// LatLonToTile returns the tile containing the given coordinate at a zoom level.
func LatLonToTile(lat, lon float64, zoom int) TileCoord {
	n := float64(int(1) << zoom)
	x, y := Project(ClampLat(lat), lon)
	maxTile := int(n) - 1
	return TileCoord{
		X:    clampTile(int(x*n), maxTile),
		Y:    clampTile(int(y*n), maxTile),
		Zoom: zoom,
	}
}

// TileToLatLon returns the coordinate of a tile's north-west corner.
func TileToLatLon(t TileCoord) (lat, lon float64) {
	n := float64(int(1) << t.Zoom)
	return Unproject(float64(t.X)/n, float64(t.Y)/n)
}

// GeoBounds returns the geographic bounds of a tile.
func GeoBounds(t TileCoord) (minLon, minLat, maxLon, maxLat float64) {
	n := float64(int(1) << t.Zoom)
	maxLat, minLon = Unproject(float64(t.X)/n, float64(t.Y)/n)
	minLat, maxLon = Unproject(float64(t.X+1)/n, float64(t.Y+1)/n)
	return minLon, minLat, maxLon, maxLat
}

// GetAdjacentTiles returns in-bounds neighbours in prefetch priority order:
// right, left, down, up.
func GetAdjacentTiles(t TileCoord) []TileCoord {
	maxTile := (1 << t.Zoom) - 1
	adjacent := make([]TileCoord, 0, 4)

	if t.X+1 <= maxTile {
		adjacent = append(adjacent, TileCoord{X: t.X + 1, Y: t.Y, Zoom: t.Zoom})
	}
	if t.X-1 >= 0 {
		adjacent = append(adjacent, TileCoord{X: t.X - 1, Y: t.Y, Zoom: t.Zoom})
	}
	if t.Y+1 <= maxTile {
		adjacent = append(adjacent, TileCoord{X: t.X, Y: t.Y + 1, Zoom: t.Zoom})
	}
	if t.Y-1 >= 0 {
		adjacent = append(adjacent, TileCoord{X: t.X, Y: t.Y - 1, Zoom: t.Zoom})
	}

	return adjacent
}

// GetVisibleTiles returns all tiles covering a viewport centered on the
// given coordinate, with a one-tile buffer for smooth panning.
func GetVisibleTiles(centerLat, centerLon float64, zoom int, viewportWidth, viewportHeight int) []TileCoord {
	centerTile := LatLonToTile(centerLat, centerLon, zoom)

	tilesX := viewportWidth/TileSize + 3
	tilesY := viewportHeight/TileSize + 3

	return tilesAround(centerTile, tilesX/2, tilesY/2, zoom)
}

// GetPrefetchTiles returns tiles to warm the cache with: roughly 5x the
// viewport area at the current zoom, plus rings at the adjacent zoom levels
// so zooming does not start cold.
func GetPrefetchTiles(centerLat, centerLon float64, zoom int, viewportWidth, viewportHeight int) []TileCoord {
	centerTile := LatLonToTile(centerLat, centerLon, zoom)

	// 5x area is ~2.24x per dimension; round up to 2.5.
	tilesX := int(float64(viewportWidth/TileSize+2) * 2.5)
	tilesY := int(float64(viewportHeight/TileSize+2) * 2.5)
	halfX := tilesX / 2
	halfY := tilesY / 2

	coords := tilesAround(centerTile, halfX, halfY, zoom)

	for _, zoomOffset := range []int{-1, 1} {
		adjZoom := zoom + zoomOffset
		if adjZoom < MinZoom || adjZoom > MaxZoom {
			continue
		}

		adjHalfX, adjHalfY := halfX/2, halfY/2
		if zoomOffset == 1 {
			// Zooming in quadruples tile density, keep the full ring.
			adjHalfX, adjHalfY = halfX, halfY
		}

		adjCenter := LatLonToTile(centerLat, centerLon, adjZoom)
		coords = append(coords, tilesAround(adjCenter, adjHalfX, adjHalfY, adjZoom)...)
	}

	return coords
}

func tilesAround(center TileCoord, halfX, halfY, zoom int) []TileCoord {
	maxTile := (1 << zoom) - 1
	coords := make([]TileCoord, 0, (2*halfX+1)*(2*halfY+1))

	for dy := -halfY; dy <= halfY; dy++ {
		for dx := -halfX; dx <= halfX; dx++ {
			x := center.X + dx
			y := center.Y + dy
			if x >= 0 && x <= maxTile && y >= 0 && y <= maxTile {
				coords = append(coords, TileCoord{X: x, Y: y, Zoom: zoom})
			}
		}
	}

	return coords
}
