package camera

import (
	"math"
	"testing"

	"markermap/pkg/tiles"
)

func TestNewCameraClampsZoom(t *testing.T) {
	tests := []struct {
		name string
		zoom int
		want int
	}{
		{name: "below range", zoom: 0, want: tiles.MinZoom},
		{name: "in range", zoom: 12, want: 12},
		{name: "above range", zoom: 30, want: tiles.MaxZoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCamera(52.0, 4.9, tt.zoom, 1280, 720)
			if c.Zoom != tt.want {
				t.Errorf("zoom = %d, want %d", c.Zoom, tt.want)
			}
		})
	}
}

func TestScreenGeoRoundTrip(t *testing.T) {
	c := NewCamera(52.3676, 4.9041, 12, 1280, 720)

	for _, px := range []struct{ x, y float64 }{
		{640, 360},
		{0, 0},
		{1280, 720},
		{100, 650},
	} {
		lon, lat := c.ScreenToGeo(px.x, px.y)
		sx, sy := c.GeoToScreen(lon, lat)
		if math.Abs(sx-px.x) > 1e-6 || math.Abs(sy-px.y) > 1e-6 {
			t.Errorf("round trip of (%v, %v) gave (%v, %v)", px.x, px.y, sx, sy)
		}
	}
}

func TestScreenCenterIsCameraPosition(t *testing.T) {
	c := NewCamera(52.3676, 4.9041, 12, 1280, 720)
	lon, lat := c.ScreenToGeo(640, 360)
	if math.Abs(lat-c.Lat) > 1e-9 || math.Abs(lon-c.Lon) > 1e-9 {
		t.Errorf("screen center = (%v, %v), want camera position (%v, %v)", lon, lat, c.Lon, c.Lat)
	}
}

func TestPanMovesCenter(t *testing.T) {
	c := NewCamera(52.3676, 4.9041, 12, 1280, 720)
	startLat, startLon := c.Lat, c.Lon

	// Dragging content right moves the camera west.
	c.Pan(100, 0)
	if c.Lon >= startLon {
		t.Errorf("pan right: lon went from %v to %v, want decrease", startLon, c.Lon)
	}
	if math.Abs(c.Lat-startLat) > 1e-9 {
		t.Errorf("horizontal pan changed latitude: %v -> %v", startLat, c.Lat)
	}

	// Dragging content down moves the camera north.
	c.Pan(0, 100)
	if c.Lat <= startLat {
		t.Errorf("pan down: lat went from %v to %v, want increase", startLat, c.Lat)
	}
}

func TestZoomAtPointKeepsAnchor(t *testing.T) {
	c := NewCamera(52.3676, 4.9041, 10, 1280, 720)

	anchorX, anchorY := 300.0, 500.0
	lonBefore, latBefore := c.ScreenToGeo(anchorX, anchorY)

	c.ZoomAtPoint(1, anchorX, anchorY)

	lonAfter, latAfter := c.ScreenToGeo(anchorX, anchorY)
	if math.Abs(lonAfter-lonBefore) > 1e-6 || math.Abs(latAfter-latBefore) > 1e-6 {
		t.Errorf("anchor moved: (%v, %v) -> (%v, %v)", lonBefore, latBefore, lonAfter, latAfter)
	}
	if c.Zoom != 11 {
		t.Errorf("zoom = %d, want 11", c.Zoom)
	}
}

func TestZoomAtPointAtLimitIsNoop(t *testing.T) {
	c := NewCamera(52.3676, 4.9041, tiles.MaxZoom, 1280, 720)
	lat, lon := c.Lat, c.Lon
	c.ZoomAtPoint(1, 100, 100)
	if c.Zoom != tiles.MaxZoom || c.Lat != lat || c.Lon != lon {
		t.Error("zoom past the limit moved the camera")
	}
}

func TestDragLifecycle(t *testing.T) {
	c := NewCamera(52.3676, 4.9041, 12, 1280, 720)

	if c.IsDragging() {
		t.Fatal("new camera reports dragging")
	}
	startLon := c.Lon

	c.Drag(200, 200) // no StartDrag, must be ignored
	if c.Lon != startLon {
		t.Error("drag without StartDrag moved the camera")
	}

	c.StartDrag(100, 100)
	c.Drag(150, 100)
	c.EndDrag()

	if c.IsDragging() {
		t.Error("still dragging after EndDrag")
	}
	if c.Lon >= startLon {
		t.Errorf("drag right: lon went from %v to %v, want decrease", startLon, c.Lon)
	}
}

func TestGetTileBoundsWithinWorld(t *testing.T) {
	c := NewCamera(52.3676, 4.9041, 4, 1280, 720)
	minX, minY, maxX, maxY := c.GetTileBounds()

	maxTile := (1 << c.Zoom) - 1
	if minX < 0 || minY < 0 || maxX > maxTile || maxY > maxTile {
		t.Errorf("bounds (%d,%d)-(%d,%d) exceed world [0,%d]", minX, minY, maxX, maxY, maxTile)
	}
	if minX > maxX || minY > maxY {
		t.Errorf("bounds inverted: (%d,%d)-(%d,%d)", minX, minY, maxX, maxY)
	}
}

// TestViewMatrixAgreesWithScreenMapping multiplies world points through the
// marker-pass matrix and checks the result against GeoToScreen converted
// to NDC. The two paths must agree or markers detach from the basemap.
func TestViewMatrixAgreesWithScreenMapping(t *testing.T) {
	c := NewCamera(52.3676, 4.9041, 12, 1280, 720)
	m := c.ViewMatrix()

	points := []struct{ lat, lon float64 }{
		{52.3676, 4.9041},
		{52.40, 4.95},
		{52.30, 4.80},
	}

	for _, p := range points {
		wx, wy := tiles.Project(p.lat, p.lon)
		ndcX := float64(m[0])*wx + float64(m[12])
		ndcY := float64(m[5])*wy + float64(m[13])

		sx, sy := c.GeoToScreen(p.lon, p.lat)
		wantX := sx/float64(c.ViewportWidth)*2 - 1
		wantY := 1 - sy/float64(c.ViewportHeight)*2

		// float32 matrix entries at this zoom carry ~1e-4 of NDC noise
		if math.Abs(ndcX-wantX) > 1e-3 || math.Abs(ndcY-wantY) > 1e-3 {
			t.Errorf("point (%v, %v): matrix gave (%v, %v), screen path gave (%v, %v)",
				p.lat, p.lon, ndcX, ndcY, wantX, wantY)
		}
	}
}

func TestAspectAndZoomScale(t *testing.T) {
	c := NewCamera(0, 0, 10, 1280, 720)
	if got, want := c.Aspect(), float32(1280)/float32(720); got != want {
		t.Errorf("Aspect() = %v, want %v", got, want)
	}
	if got := c.ZoomScale(); got != 1024 {
		t.Errorf("ZoomScale() = %v, want 1024", got)
	}

	c.SetViewport(100, 0)
	if got := c.Aspect(); got != 1 {
		t.Errorf("Aspect() with zero height = %v, want 1", got)
	}
}
