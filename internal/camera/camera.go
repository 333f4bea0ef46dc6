// Package camera tracks the map viewport and derives the uniforms the
// renderer needs: tile placement in screen space and the world-to-clip
// matrix for the marker overlay.
package camera

import (
	"math"

	"markermap/pkg/tiles"
)

// Camera represents the map camera/viewport.
type Camera struct {
	// Geographic position (center of view)
	Lat float64
	Lon float64

	// Zoom level (slippy-map zoom, tiles.MinZoom..tiles.MaxZoom)
	Zoom int

	// Viewport dimensions in pixels
	ViewportWidth  int
	ViewportHeight int

	// Drag state
	isDragging bool
	lastDragX  float64
	lastDragY  float64
}

// NewCamera creates a camera centered on the given coordinates.
func NewCamera(lat, lon float64, zoom int, width, height int) *Camera {
	c := &Camera{
		Lat:            tiles.ClampLat(lat),
		Lon:            tiles.WrapLon(lon),
		ViewportWidth:  width,
		ViewportHeight: height,
	}
	c.ZoomTo(zoom)
	return c
}

// SetViewport updates the viewport dimensions.
func (c *Camera) SetViewport(width, height int) {
	c.ViewportWidth = width
	c.ViewportHeight = height
}

// worldPixels returns the size of the projected world in pixels at the
// current zoom.
func (c *Camera) worldPixels() float64 {
	return math.Pow(2, float64(c.Zoom)) * tiles.TileSize
}

// Pan moves the camera by the given screen-pixel delta.
func (c *Camera) Pan(deltaX, deltaY float64) {
	wp := c.worldPixels()
	cx, cy := tiles.Project(c.Lat, c.Lon)

	lat, lon := tiles.Unproject(cx-deltaX/wp, cy-deltaY/wp)
	c.Lat = tiles.ClampLat(lat)
	c.Lon = tiles.WrapLon(lon)
}

// ZoomIn increases the zoom level.
func (c *Camera) ZoomIn() {
	if c.Zoom < tiles.MaxZoom {
		c.Zoom++
	}
}

// ZoomOut decreases the zoom level.
func (c *Camera) ZoomOut() {
	if c.Zoom > tiles.MinZoom {
		c.Zoom--
	}
}

// ZoomTo sets a specific zoom level, clamped to the valid range.
func (c *Camera) ZoomTo(zoom int) {
	if zoom < tiles.MinZoom {
		zoom = tiles.MinZoom
	}
	if zoom > tiles.MaxZoom {
		zoom = tiles.MaxZoom
	}
	c.Zoom = zoom
}

// ZoomAtPoint zooms while keeping the geographic point under the given
// screen position fixed.
func (c *Camera) ZoomAtPoint(delta int, screenX, screenY float64) {
	lon, lat := c.ScreenToGeo(screenX, screenY)

	oldZoom := c.Zoom
	c.ZoomTo(c.Zoom + delta)
	if c.Zoom == oldZoom {
		return
	}

	// Drag the content so the anchor point lands back under the cursor.
	newScreenX, newScreenY := c.GeoToScreen(lon, lat)
	c.Pan(screenX-newScreenX, screenY-newScreenY)
}

// ScreenToGeo converts screen coordinates to geographic coordinates.
func (c *Camera) ScreenToGeo(screenX, screenY float64) (lon, lat float64) {
	wp := c.worldPixels()
	cx, cy := tiles.Project(c.Lat, c.Lon)

	wx := cx + (screenX-float64(c.ViewportWidth)/2)/wp
	wy := cy + (screenY-float64(c.ViewportHeight)/2)/wp

	lat, lon = tiles.Unproject(wx, wy)
	return lon, lat
}

// GeoToScreen converts geographic coordinates to screen coordinates.
func (c *Camera) GeoToScreen(lon, lat float64) (screenX, screenY float64) {
	wp := c.worldPixels()
	cx, cy := tiles.Project(c.Lat, c.Lon)
	tx, ty := tiles.Project(lat, lon)

	screenX = (tx-cx)*wp + float64(c.ViewportWidth)/2
	screenY = (ty-cy)*wp + float64(c.ViewportHeight)/2
	return screenX, screenY
}

// StartDrag begins a drag operation.
func (c *Camera) StartDrag(x, y float64) {
	c.isDragging = true
	c.lastDragX = x
	c.lastDragY = y
}

// Drag continues a drag operation.
func (c *Camera) Drag(x, y float64) {
	if !c.isDragging {
		return
	}

	c.Pan(x-c.lastDragX, y-c.lastDragY)

	c.lastDragX = x
	c.lastDragY = y
}

// EndDrag ends a drag operation.
func (c *Camera) EndDrag() {
	c.isDragging = false
}

// IsDragging reports whether a drag is in progress.
func (c *Camera) IsDragging() bool {
	return c.isDragging
}

// GetTileBounds returns the tile range covering the current viewport.
func (c *Camera) GetTileBounds() (minX, minY, maxX, maxY int) {
	scale := math.Pow(2, float64(c.Zoom))
	maxTile := int(scale) - 1

	cx, cy := tiles.Project(c.Lat, c.Lon)
	centerTileX := cx * scale
	centerTileY := cy * scale

	tilesX := float64(c.ViewportWidth) / tiles.TileSize / 2
	tilesY := float64(c.ViewportHeight) / tiles.TileSize / 2

	minX = int(math.Floor(centerTileX - tilesX - 1))
	maxX = int(math.Ceil(centerTileX + tilesX + 1))
	minY = int(math.Floor(centerTileY - tilesY - 1))
	maxY = int(math.Ceil(centerTileY + tilesY + 1))

	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX > maxTile {
		maxX = maxTile
	}
	if maxY > maxTile {
		maxY = maxTile
	}

	return minX, minY, maxX, maxY
}

// GetTileScreenPosition returns the screen position of a tile's top-left corner.
func (c *Camera) GetTileScreenPosition(tileX, tileY int) (screenX, screenY float64) {
	scale := math.Pow(2, float64(c.Zoom))
	cx, cy := tiles.Project(c.Lat, c.Lon)

	screenX = float64(c.ViewportWidth)/2 + (float64(tileX)-cx*scale)*tiles.TileSize
	screenY = float64(c.ViewportHeight)/2 + (float64(tileY)-cy*scale)*tiles.TileSize
	return screenX, screenY
}

// ViewMatrix returns the column-major matrix mapping Web Mercator unit
// coordinates to clip space for the current viewport.
func (c *Camera) ViewMatrix() [16]float32 {
	wp := c.worldPixels()
	cx, cy := tiles.Project(c.Lat, c.Lon)

	// Unit-world to NDC: scale, then translate the camera center to origin.
	// Y flips because world y grows southward and NDC y grows upward.
	sx := wp * 2 / float64(c.ViewportWidth)
	sy := -wp * 2 / float64(c.ViewportHeight)

	var m [16]float32
	m[0] = float32(sx)
	m[5] = float32(sy)
	m[10] = 1
	m[12] = float32(-cx * sx)
	m[13] = float32(-cy * sy)
	m[15] = 1
	return m
}

// Aspect returns the viewport width/height ratio.
func (c *Camera) Aspect() float32 {
	if c.ViewportHeight == 0 {
		return 1
	}
	return float32(c.ViewportWidth) / float32(c.ViewportHeight)
}

// ZoomScale returns the fractional world scale, 2^zoom, as a shader scalar.
func (c *Camera) ZoomScale() float32 {
	return float32(math.Pow(2, float64(c.Zoom)))
}
